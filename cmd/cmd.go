// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func sortFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "sort",
		Usage: "Sort order: title_asc, price_asc, price_desc, rating_desc, rating_asc",
		Value: "title_asc",
	}
}

// setupCommand handles setup operations for the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show which migrations have been applied",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// catalogCommand handles browsing the store's audiobooks.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"books"},
		Usage:   "Browse audiobooks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List every audiobook",
				Flags: []cli.Flag{
					sortFlag(),
					&cli.StringFlag{
						Name:    "filter",
						Aliases: []string{"f"},
						Usage:   "Only show titles containing this text",
					},
					jsonFlag(),
				},
				Action: r.CatalogList,
			},
			{
				Name:      "show",
				Usage:     "Show one audiobook",
				Arguments: []cli.Argument{&cli.StringArg{Name: "audioId"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.CatalogShow,
			},
			{
				Name:      "search",
				Usage:     "Search audiobooks by title",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags:     []cli.Flag{sortFlag(), jsonFlag()},
				Action:    r.CatalogSearch,
			},
			{
				Name:      "author",
				Usage:     "List audiobooks by an author",
				Arguments: []cli.Argument{&cli.StringArg{Name: "authorId"}},
				Flags:     []cli.Flag{sortFlag(), jsonFlag()},
				Action:    r.CatalogAuthor,
			},
			{
				Name:      "open",
				Usage:     "Open an audiobook's cover, preview clip or audio file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "audioId"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "what",
						Usage: "cover, clip or audio",
						Value: "cover",
					},
				},
				Action: r.CatalogOpen,
			},
		},
	}
}

// authCommand handles customer accounts and the local session.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Account and session commands",
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Create an account and sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Full name", Required: true},
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password", Required: true},
					&cli.StringFlag{Name: "confirm", Usage: "Password confirmation (defaults to --password)"},
				},
				Action: r.AuthRegister,
			},
			{
				Name:  "login",
				Usage: "Sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password", Required: true},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and forget the saved session",
				Action: r.AuthLogout,
			},
			{
				Name:   "whoami",
				Usage:  "Show the signed-in customer",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthWhoami,
			},
			{
				Name:   "profile",
				Usage:  "Fetch the signed-in customer's profile",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthProfile,
			},
			{
				Name:  "change-password",
				Usage: "Change the signed-in customer's password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "new-password", Usage: "New password", Required: true},
					&cli.StringFlag{Name: "confirm", Usage: "New password again", Required: true},
				},
				Action: r.AuthChangePassword,
			},
			{
				Name:  "forgot-password",
				Usage: "Reset a password by email",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "new-password", Usage: "New password", Required: true},
				},
				Action: r.AuthForgotPassword,
			},
		},
	}
}

// cartCommand handles the signed-in customer's cart.
func cartCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "Shopping cart commands",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the cart with totals",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.CartShow,
			},
			{
				Name:      "add",
				Usage:     "Add an audiobook to the cart",
				Arguments: []cli.Argument{&cli.StringArg{Name: "audioId"}},
				Action:    r.CartAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove an audiobook from the cart",
				Arguments: []cli.Argument{&cli.StringArg{Name: "audioId"}},
				Action:    r.CartRemove,
			},
		},
	}
}

// checkoutCommand places an order for the cart.
func checkoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "checkout",
		Usage: "Pay for the cart with a saved card",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "card",
				Usage:    "Saved card ID (see 'audx cards list')",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "cvv",
				Usage:    "Card security code",
				Required: true,
			},
			jsonFlag(),
		},
		Action: r.Checkout,
	}
}

// cardsCommand handles saved payment cards.
func cardsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cards",
		Usage: "Saved payment card commands",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List saved cards",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.CardsList,
			},
			{
				Name:  "add",
				Usage: "Save a card",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "number", Usage: "16-digit card number", Required: true},
					&cli.StringFlag{Name: "holder", Usage: "Name on the card", Required: true},
					&cli.StringFlag{Name: "expiry", Usage: "Expiry date (YYYY-MM-DD)", Required: true},
					&cli.StringFlag{Name: "cvv", Usage: "Card security code", Required: true},
					&cli.BoolFlag{Name: "debit", Usage: "Save as a debit card"},
				},
				Action: r.CardsAdd,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a saved card",
				Arguments: []cli.Argument{&cli.StringArg{Name: "cardId"}},
				Action:    r.CardsDelete,
			},
		},
	}
}

// libraryCommand handles owned audiobooks.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Owned audiobook commands",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "List owned audiobooks with progress",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.LibraryShow,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove an audiobook from the library",
				Arguments: []cli.Argument{&cli.StringArg{Name: "audioId"}},
				Action:    r.LibraryRemove,
			},
			{
				Name:  "export",
				Usage: "Export the library to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, md, txt or json",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (csv, txt) or directory (md)",
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover images alongside a Markdown export",
					},
				},
				Action: r.LibraryExport,
			},
			{
				Name:  "download",
				Usage: "Download owned audio files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: audx_downloads_{epoch})",
					},
					&cli.IntSliceFlag{
						Name:  "id",
						Usage: "Only download these audio IDs",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent downloads (max 8)",
						Value: 3,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Requests per second",
						Value: 2,
					},
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Replace files that already exist",
					},
				},
				Action: r.LibraryDownload,
			},
			{
				Name:   "audit",
				Usage:  "Compare downloaded files with the library",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.LibraryAudit,
			},
		},
	}
}

// playCommand plays audio without the TUI.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Play an owned audiobook, or a preview with --preview",
		Arguments: []cli.Argument{&cli.StringArg{Name: "audioId"}},
		Flags: []cli.Flag{
			&cli.FloatFlag{
				Name:  "from",
				Usage: "Start at this many seconds instead of the saved position",
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Playback rate: 1, 1.25, 1.5 or 2",
			},
			&cli.DurationFlag{
				Name:  "for",
				Usage: "Stop after this long (e.g. 30s, 5m)",
			},
			&cli.BoolFlag{
				Name:  "preview",
				Usage: "Play the short clip instead of the full audiobook",
			},
		},
		Action: r.Play,
	}
}

// cacheCommand handles state kept on this machine.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and clear local state",
		Commands: []*cli.Command{
			{
				Name:   "positions",
				Usage:  "List saved resume positions",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.CachePositions,
			},
			{
				Name:      "clear-position",
				Usage:     "Forget the saved resume position for an audiobook",
				Arguments: []cli.Argument{&cli.StringArg{Name: "audioId"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Forget every saved position",
					},
				},
				Action: r.CacheClearPosition,
			},
			{
				Name:  "downloads",
				Usage: "List the download log",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "audio-id",
						Usage: "Only show downloads of this audio ID",
					},
					jsonFlag(),
				},
				Action: r.CacheDownloads,
			},
			{
				Name:      "forget-download",
				Usage:     "Remove a record from the download log",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.CacheForgetDownload,
			},
		},
	}
}

// apiCommand handles direct store API calls and dump
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the store API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the store, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "Print compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "dump",
				Usage: "Dump the catalog and the signed-in customer's data",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save dump to api_dump.json",
						Value: false,
					},
				},
				Action: r.APIDump,
			},
		},
	}
}

// sandboxCommand runs a local in-memory store.
func sandboxCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sandbox",
		Usage: "Serve an in-memory store for local testing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default from config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default from config)",
			},
			&cli.BoolFlag{
				Name:  "legacy-library",
				Usage: "Serve library entries without a top-level audioId",
			},
		},
		Action: r.Sandbox,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive store and player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI is running",
				Value: "./tmp/audx-tui.log",
			},
		},
		Action: r.TUI,
	}
}
