package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/config"
	"github.com/BaSui01/rewardflow/credentials"
	"github.com/BaSui01/rewardflow/internal/database"
	"github.com/BaSui01/rewardflow/types"
)

// =============================================================================
// 👤 accounts 命令
// =============================================================================

func runAccounts(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rewardflow accounts <import|list> [options]")
		return 1
	}

	switch args[0] {
	case "import":
		return runAccountsImport(args[1:])
	case "list":
		return runAccountsList(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown accounts subcommand: %s\n", args[0])
		return 1
	}
}

func runAccountsImport(args []string) int {
	fs := flag.NewFlagSet("accounts import", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	emails := fs.String("emails", "", "Delimited email addresses")
	passwords := fs.String("passwords", "", "Delimited passwords")
	delimiter := fs.String("delimiter", ",", "List delimiter")
	file := fs.String("file", "", "Credential file to append to")
	useDB := fs.Bool("db", false, "Store in the credential database")
	profile := fs.String("profile", "", "Profile to bind database records to")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	creds, err := credentials.ParseDelimited(*emails, *passwords, *delimiter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid credentials: %v\n", err)
		return 1
	}

	ctx := context.Background()
	if *useDB {
		var p types.Profile
		if *profile != "" {
			if p, err = types.ParseProfile(*profile); err != nil {
				fmt.Fprintf(os.Stderr, "Invalid profile: %v\n", err)
				return 1
			}
		}
		n, err := importToDatabase(ctx, cfg, p, creds, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
			return 1
		}
		fmt.Printf("Imported %d account(s); %d stored in database\n", len(creds), n)
		return 0
	}

	path := *file
	if path == "" {
		if len(cfg.Accounts.Files) == 0 {
			fmt.Fprintln(os.Stderr, "No credential file configured, pass --file")
			return 1
		}
		path = cfg.Accounts.Files[0]
	}
	all, err := credentials.NewJSONFile(path).SaveAll(ctx, creds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		return 1
	}
	logger.Info("credentials saved", zap.String("file", path), zap.Int("added", len(creds)))
	fmt.Printf("Imported %d account(s); %d stored in %s\n", len(creds), len(all), path)
	return 0
}

func importToDatabase(ctx context.Context, cfg *config.Config, profile types.Profile, creds []types.Credential, logger *zap.Logger) (int64, error) {
	pool, err := database.Open(cfg.DatabaseConfig(), logger)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	store, err := credentials.NewStore(ctx, pool, logger)
	if err != nil {
		return 0, err
	}
	if err := store.Save(ctx, profile, creds); err != nil {
		return 0, err
	}
	return store.Count(ctx)
}

func runAccountsList(args []string) int {
	fs := flag.NewFlagSet("accounts list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	var store *credentials.Store
	if cfg.Accounts.UseDatabase {
		pool, err := database.Open(cfg.DatabaseConfig(), logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
			return 1
		}
		defer pool.Close()
		if store, err = credentials.NewStore(ctx, pool, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open credential store: %v\n", err)
			return 1
		}
	}

	for _, name := range cfg.Run.Profiles {
		p, err := types.ParseProfile(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid profile: %v\n", err)
			return 1
		}
		creds, err := credentialSource(cfg.Accounts, store, p).LoadCredentials(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load credentials: %v\n", err)
			return 1
		}
		printAccounts(os.Stdout, p, creds)
	}
	return 0
}

func printAccounts(w io.Writer, profile types.Profile, creds []types.Credential) {
	fmt.Fprintf(w, "%s (%d):\n", profile, len(creds))
	for _, c := range creds {
		fmt.Fprintf(w, "  %s\n", c.Masked())
	}
}
