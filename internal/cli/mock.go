package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"silentwave/internal/alerts"
	"silentwave/internal/models"
)

type mockOptions struct {
	server string
	typ    string
	cities []string
	offset int
}

type mockResult struct {
	Success   bool         `json:"success"`
	MockAlert models.Alert `json:"mockAlert"`
}

func MockCmd() *cobra.Command {
	var opts mockOptions
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Inject or clear a test alert on a running server",
		Example: "  silentwave mock --type missiles --cities נתניה --offset 15\n" +
			"  silentwave mock --type none",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := sendMock(cmd.Context(), opts)
			if err != nil {
				return err
			}
			a := res.MockAlert
			if a.Type == models.AlertNone {
				fmt.Fprintln(cmd.OutOrStdout(), clearStyle.Render("mock alert cleared"))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s, issued %s\n",
				severityStyle(alerts.Severity(a.Type)).Render(alerts.Label(a)),
				strings.Join(a.Cities, ", "),
				formatAge(time.Now(), a.Timestamp))
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.server, "server", "s", "http://localhost:8080", "SilentWave server URL")
	cmd.Flags().StringVarP(&opts.typ, "type", "t", string(models.AlertMissiles), "Alert type, or none to clear")
	cmd.Flags().StringSliceVar(&opts.cities, "cities", nil, "Affected cities (comma-separated)")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Seconds since the alert was issued")
	return cmd
}

func sendMock(ctx context.Context, opts mockOptions) (*mockResult, error) {
	q := url.Values{}
	q.Set("type", opts.typ)
	if len(opts.cities) > 0 {
		q.Set("cities", strings.Join(opts.cities, ","))
	}
	if opts.offset > 0 {
		q.Set("offset", strconv.Itoa(opts.offset))
	}
	endpoint := strings.TrimRight(opts.server, "/") + "/api/mock-alert?" + q.Encode()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build mock request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send mock request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("mock request failed: %s %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var res mockResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, errors.Wrap(err, "decode mock response")
	}
	return &res, nil
}
