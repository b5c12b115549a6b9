package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/desertthunder/audx/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the store
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("status %d: %w", resp.StatusCode, err)
	}

	return r.writeResponse(resp.IsJSON, resp.JSONData, resp.Body, !cmd.Bool("raw"))
}

// APIPost makes a direct POST request to the store
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	var probe any
	if err := json.Unmarshal([]byte(data), &probe); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	r.logger.Info("POST request", "path", path)

	resp, err := r.api.Post(ctx, path, []byte(data))
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("status %d: %w", resp.StatusCode, err)
	}

	return r.writeResponse(resp.IsJSON, resp.JSONData, resp.Body, true)
}

func (r *Runner) writeResponse(isJSON bool, data any, body []byte, pretty bool) error {
	if isJSON {
		return r.writeJSON(data, pretty)
	}
	if _, err := r.output.Write(body); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	_, err := r.output.Write([]byte("\n"))
	return err
}

// APIDump fetches the catalog and, when signed in, the customer's profile, cart, library and cards.
func (r *Runner) APIDump(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("dumping store state")
	r.writePlain("Fetching store state...\n\n")

	type DumpData struct {
		Audiobooks any   `json:"audiobooks"`
		Profile    any   `json:"profile,omitempty"`
		Cart       any   `json:"cart,omitempty"`
		Library    any   `json:"library,omitempty"`
		Cards      any   `json:"cards,omitempty"`
		Errors     []any `json:"errors,omitempty"`
	}

	dump := DumpData{Errors: []any{}}

	fetch := func(label, path string) any {
		r.writePlain("%s\n", label)
		resp, err := r.api.Get(ctx, path)
		if err == nil {
			err = resp.Err()
		}
		if err != nil {
			dump.Errors = append(dump.Errors, map[string]string{"endpoint": path, "error": err.Error()})
			r.logger.Warn("failed to fetch", "path", path, "error", err)
			return nil
		}
		return resp.JSONData
	}

	dump.Audiobooks = fetch("📚 Fetching audiobooks...", "/api/audiobooks")

	if current, ok := r.session.Current(); ok {
		id := current.CustomerID
		dump.Profile = fetch("👤 Fetching profile...", fmt.Sprintf("/api/customers/%d", id))
		dump.Cart = fetch("🛒 Fetching cart...", fmt.Sprintf("/api/carts/%d", id))
		dump.Library = fetch("🎧 Fetching library...", fmt.Sprintf("/api/library/%d", id))
		dump.Cards = fetch("💳 Fetching cards...", fmt.Sprintf("/api/payment-cards/customer/%d", id))
	} else {
		r.writePlain("Not signed in, skipping customer data\n")
	}

	r.writePlain("\n✓ Dump complete\n\n")

	if cmd.Bool("save") {
		saveFile := "api_dump.json"
		data, err := json.MarshalIndent(dump, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := os.WriteFile(saveFile, data, 0644); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", saveFile)
			r.writePlain("✓ Dump saved to %s\n\n", saveFile)
		}
	}

	return r.writeJSON(dump, cmd.Bool("pretty"))
}
