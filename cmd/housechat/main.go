package main

import (
	"fmt"
	"os"
	"strings"
)

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "signup":
		err = commandSignup(args)
	case "login":
		err = commandLogin(args)
	case "contacts":
		err = commandContacts(args)
	case "send":
		err = commandSend(args)
	case "conversation":
		err = commandConversation(args)
	case "history":
		err = commandHistory(args)
	case "delete":
		err = commandDelete(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("housechat CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	housechat signup --email user@example.com --name "Ana" --role owner|housekeeper [--password secret] [--api http://localhost:4000]
	housechat login --email user@example.com [--password secret] [--api http://localhost:4000]
	housechat contacts
	housechat send --to <user-id> --body "text"
	housechat conversation --with <user-id>
	housechat history
	housechat delete --message <message-id> [--everyone]
	housechat version

Environment:
	HOUSECHAT_API      API base URL (overrides the saved one)
	HOUSECHAT_TIMEOUT  request timeout (default 15s)
	HOUSECHAT_CONFIG   path of the session file
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
