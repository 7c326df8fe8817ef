package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	apiclient "github.com/splax/housechat/pkg/api/client"
	"github.com/splax/housechat/pkg/config"
)

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), config.GetDuration("HOUSECHAT_TIMEOUT", 15*time.Second))
}

func readPassword(flagValue string) (string, error) {
	if secret := strings.TrimSpace(flagValue); secret != "" {
		return secret, nil
	}
	fmt.Print("Password: ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(bytes), nil
}

func commandSignup(args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Display name")
	role := fs.String("role", "", "owner or housekeeper")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" || strings.TrimSpace(*name) == "" || strings.TrimSpace(*role) == "" {
		return errors.New("--email, --name and --role are required")
	}
	secret, err := readPassword(*password)
	if err != nil {
		return err
	}
	cfg, client, err := clientFor(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()
	acct, err := client.Signup(ctx, apiclient.SignupInput{Email: *email, Password: secret, Name: *name, Role: *role})
	if err != nil {
		return err
	}
	cfg.remember(acct)
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("signed up as %s (%s, id %s)\n", acct.Profile.Name, acct.Profile.Role, acct.User.ID)
	return nil
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := readPassword(*password)
	if err != nil {
		return err
	}
	cfg, client, err := clientFor(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()
	acct, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	cfg.remember(acct)
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("login successful")
	return nil
}

func clientFor(apiBase string) (cliConfig, *apiclient.Client, error) {
	cfg, _ := loadConfig()
	if strings.TrimSpace(apiBase) != "" {
		cfg.APIBaseURL = apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return cliConfig{}, nil, err
	}
	return cfg, client, nil
}

// withSession runs call with the saved access token. On a 401 it refreshes
// the pair once and retries.
func withSession(call func(ctx context.Context, client *apiclient.Client, cfg cliConfig) error) error {
	cfg, err := requireSession()
	if err != nil {
		return err
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()

	err = call(ctx, client, cfg)
	var apiErr apiclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || cfg.RefreshToken == "" {
		return err
	}
	tokens, refreshErr := client.Refresh(ctx, cfg.RefreshToken)
	if refreshErr != nil {
		return fmt.Errorf("session expired; run `housechat login` again: %w", refreshErr)
	}
	cfg.AccessToken = tokens.AccessToken
	cfg.RefreshToken = tokens.RefreshToken
	if err := saveConfig(cfg); err != nil {
		return err
	}
	return call(ctx, client, cfg)
}

func commandContacts(args []string) error {
	fs := flag.NewFlagSet("contacts", flag.ExitOnError)
	fs.Parse(args)

	return withSession(func(ctx context.Context, client *apiclient.Client, cfg cliConfig) error {
		profiles, err := client.Contacts(ctx, cfg.AccessToken)
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Println("no contacts yet")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "USER ID\tNAME\tROLE")
		for _, p := range profiles {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.UserID, p.Name, p.Role)
		}
		return tw.Flush()
	})
}

func commandSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "Receiver user id")
	body := fs.String("body", "", "Message text")
	fs.Parse(args)

	if strings.TrimSpace(*to) == "" || strings.TrimSpace(*body) == "" {
		return errors.New("--to and --body are required")
	}
	return withSession(func(ctx context.Context, client *apiclient.Client, cfg cliConfig) error {
		msg, err := client.Send(ctx, cfg.AccessToken, *to, *body)
		if err != nil {
			return err
		}
		fmt.Printf("message sent: %s\n", msg.ID)
		return nil
	})
}

func commandConversation(args []string) error {
	fs := flag.NewFlagSet("conversation", flag.ExitOnError)
	with := fs.String("with", "", "Other user id")
	fs.Parse(args)

	if strings.TrimSpace(*with) == "" {
		return errors.New("--with is required")
	}
	return withSession(func(ctx context.Context, client *apiclient.Client, cfg cliConfig) error {
		msgs, err := client.Conversation(ctx, cfg.AccessToken, *with)
		if err != nil {
			return err
		}
		printMessages(msgs, cfg.UserID)
		return nil
	})
}

func commandHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	fs.Parse(args)

	return withSession(func(ctx context.Context, client *apiclient.Client, cfg cliConfig) error {
		msgs, err := client.History(ctx, cfg.AccessToken, cfg.UserID)
		if err != nil {
			return err
		}
		printMessages(msgs, cfg.UserID)
		return nil
	})
}

func commandDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	messageID := fs.String("message", "", "Message id")
	everyone := fs.Bool("everyone", false, "Unsend for both participants (sender only)")
	fs.Parse(args)

	if strings.TrimSpace(*messageID) == "" {
		return errors.New("--message is required")
	}
	return withSession(func(ctx context.Context, client *apiclient.Client, cfg cliConfig) error {
		if err := client.DeleteMessage(ctx, cfg.AccessToken, *messageID, *everyone); err != nil {
			return err
		}
		fmt.Println("message deleted")
		return nil
	})
}

func printMessages(msgs []apiclient.Message, self string) {
	if len(msgs) == 0 {
		fmt.Println("no messages")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, m := range msgs {
		dir := "<-"
		peer := m.SenderID
		if m.SenderID == self {
			dir = "->"
			peer = m.ReceiverID
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\n", m.CreatedAt.Local().Format(time.DateTime), dir, peer, m.ID, m.Body)
	}
	tw.Flush()
}
