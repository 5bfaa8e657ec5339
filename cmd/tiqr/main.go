// Command tiqr is a developer tool for exercising the tiqr client core
// from a terminal: parse challenge URIs, run enrollment and
// authentication attempts against a real server, and render challenge
// QR codes for testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload" // Load .env file automatically

	"github.com/dmitrymomot/tiqrkit"
	"github.com/dmitrymomot/tiqrkit/pkg/challenge"
	"github.com/dmitrymomot/tiqrkit/pkg/devicekey"
	"github.com/dmitrymomot/tiqrkit/pkg/logger"
	"github.com/dmitrymomot/tiqrkit/pkg/qrcode"
)

type cliConfig struct {
	// DeviceID binds derived keys to this installation.
	DeviceID string `env:"TIQR_DEVICE_ID" envDefault:"tiqr-cli-device"`
	Language string `env:"TIQR_LANGUAGE" envDefault:"en"`
	Verbose  bool   `env:"TIQR_VERBOSE" envDefault:"false"`
}

const usage = `Usage: tiqr <command> [arguments]

Commands:
  parse  <uri>            parse a tiqrauth:// or tiqrenroll:// URI
  enroll <uri> <pin>      complete an enrollment challenge
  auth   <uri> <pin>      complete an authentication challenge
  qr     <uri> [out.png]  render a challenge URI as a QR code

Environment:
  TIQR_DEVICE_ID          stable device identifier for key derivation
  TIQR_IDENTITIES_PATH    JSON identity store location
  TIQR_SECRETS_PATH       encrypted secret container location
  TIQR_LANGUAGE           display language (en, nl)
  TIQR_VERBOSE            debug logging when true
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "tiqr:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logOpts := []logger.Option{logger.WithAttr(logger.Component("tiqr-cli"))}
	if cfg.Verbose {
		logOpts = append(logOpts, logger.WithVerbose())
	}
	log := logger.New(logOpts...)

	flags := flag.NewFlagSet("tiqr", flag.ContinueOnError)
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return fmt.Errorf("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, rest := flags.Arg(0), flags.Args()[1:]
	switch cmd {
	case "parse":
		return cmdParse(ctx, cfg, log, rest)
	case "enroll":
		return cmdEnroll(ctx, cfg, log, rest)
	case "auth":
		return cmdAuth(ctx, cfg, log, rest)
	case "qr":
		return cmdQR(rest)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func openClient(cfg cliConfig, log *slog.Logger) (*tiqrkit.Client, error) {
	return tiqrkit.Open(
		tiqrkit.WithLanguage(cfg.Language),
		tiqrkit.WithLogger(log),
	)
}

func cmdParse(ctx context.Context, cfg cliConfig, log *slog.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tiqr parse <uri>")
	}

	client, err := openClient(cfg, log)
	if err != nil {
		return err
	}

	switch {
	case strings.HasPrefix(args[0], challenge.SchemeEnrollment):
		ch, err := client.ParseEnrollment(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("enrollment challenge\n")
		fmt.Printf("  provider:   %s (%s)\n", ch.Provider.DisplayName, ch.Provider.Identifier)
		fmt.Printf("  identity:   %s (%s)\n", ch.Identity.DisplayName, ch.Identity.Identifier)
		fmt.Printf("  suite:      %s\n", ch.Provider.OCRASuite())
		fmt.Printf("  enroll url: %s\n", ch.EnrollmentURL)
	default:
		ch, err := client.ParseAuthentication(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("authentication challenge (protocol v%s)\n", ch.ProtocolVersion)
		fmt.Printf("  provider:    %s\n", ch.Provider.Identifier)
		fmt.Printf("  service:     %s\n", ch.ServiceProviderDisplayName)
		fmt.Printf("  session key: %s\n", ch.SessionKey)
		fmt.Printf("  challenge:   %s\n", ch.ChallengeString)
		if ch.Identity != nil {
			fmt.Printf("  identity:    %s\n", ch.Identity.Identifier)
		}
		for _, candidate := range ch.Candidates {
			fmt.Printf("  candidate:   %s\n", candidate.Identifier)
		}
		if ch.ReturnURL != "" {
			fmt.Printf("  return url:  %s\n", ch.ReturnURL)
		}
	}
	return nil
}

func cmdEnroll(ctx context.Context, cfg cliConfig, log *slog.Logger, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tiqr enroll <uri> <pin>")
	}

	client, err := openClient(cfg, log)
	if err != nil {
		return err
	}

	ch, err := client.ParseEnrollment(ctx, args[0])
	if err != nil {
		return err
	}

	saved, err := client.Enroll(ctx, ch, []byte(args[1]), devicekey.DeviceContext{DeviceID: cfg.DeviceID})
	if err != nil {
		return err
	}
	fmt.Printf("enrolled %s with %s\n", saved.Identifier, ch.Provider.DisplayName)
	return nil
}

func cmdAuth(ctx context.Context, cfg cliConfig, log *slog.Logger, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tiqr auth <uri> <pin>")
	}

	client, err := openClient(cfg, log)
	if err != nil {
		return err
	}

	ch, err := client.ParseAuthentication(ctx, args[0])
	if err != nil {
		return err
	}
	if ch.Identity == nil {
		fmt.Println("multiple identities match; re-run with the identity in the URI:")
		for _, candidate := range ch.Candidates {
			fmt.Printf("  %s\n", candidate.Identifier)
		}
		return fmt.Errorf("no identity selected")
	}

	result := client.Authenticate(ctx, ch, []byte(args[1]), devicekey.DeviceContext{DeviceID: cfg.DeviceID})
	if !result.OK() {
		return fmt.Errorf("%s: %s", result.Err.Title, result.Err.Message)
	}
	fmt.Println("authenticated")
	if result.ReturnURL != "" {
		fmt.Printf("return url: %s\n", result.ReturnURL)
	}
	return nil
}

func cmdQR(args []string) error {
	switch len(args) {
	case 1:
		art, err := qrcode.Terminal(args[0])
		if err != nil {
			return err
		}
		fmt.Print(art)
		return nil
	case 2:
		if err := qrcode.WriteFile(args[0], qrcode.DefaultSize, args[1]); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", args[1])
		return nil
	default:
		return fmt.Errorf("usage: tiqr qr <uri> [out.png]")
	}
}
