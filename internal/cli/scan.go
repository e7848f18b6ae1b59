package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	"github.com/pratik-mahalle/iamgen/internal/providers"
)

const scanPollInterval = 500 * time.Millisecond

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan cloud IAM configuration",
	}

	cmd.AddCommand(newScanStartCmd())
	cmd.AddCommand(newScanStatusCmd())
	cmd.AddCommand(newScanListCmd())
	cmd.AddCommand(newScanCategoriesCmd())

	return cmd
}

type scanFlags struct {
	file        string
	provider    string
	auth        scan.AuthParams
	categories  []string
	namePrefix  string
	pathPrefix  string
	roleType    string
	includeTags bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the scan config from a YAML file; flags override its values")
	cmd.Flags().StringVarP(&f.provider, "provider", "p", "", "cloud provider: aws or azure")
	cmd.Flags().StringVar(&f.auth.Profile, "profile", "", "AWS shared config profile")
	cmd.Flags().StringVar(&f.auth.RoleARN, "role-arn", "", "AWS role to assume before scanning")
	cmd.Flags().StringVar(&f.auth.Region, "region", "", "AWS region")
	cmd.Flags().StringVar(&f.auth.TenantID, "tenant-id", "", "Azure tenant id")
	cmd.Flags().StringVar(&f.auth.SubscriptionID, "subscription-id", "", "Azure subscription id")
	cmd.Flags().StringVar(&f.auth.ClientID, "client-id", "", "Azure service principal client id")
	cmd.Flags().StringSliceVar(&f.categories, "categories", nil, "categories to scan (default: all supported by the provider)")
	cmd.Flags().StringVar(&f.namePrefix, "name-prefix", "", "only keep resources whose name starts with this prefix")
	cmd.Flags().StringVar(&f.pathPrefix, "path-prefix", "", "AWS IAM path prefix")
	cmd.Flags().StringVar(&f.roleType, "role-type", "", "Azure role definition type: BuiltInRole or CustomRole")
	cmd.Flags().BoolVar(&f.includeTags, "include-tags", false, "fetch tags for every user and role")
}

// config merges the optional config file with the flags that were set
func (f *scanFlags) config(cmd *cobra.Command) (scan.ScanConfig, error) {
	var cfg scan.ScanConfig
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return cfg, fmt.Errorf("failed to read scan config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse scan config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = scan.Provider(strings.ToLower(f.provider))
	}
	setString(flags.Changed("profile"), &cfg.Auth.Profile, f.auth.Profile)
	setString(flags.Changed("role-arn"), &cfg.Auth.RoleARN, f.auth.RoleARN)
	setString(flags.Changed("region"), &cfg.Auth.Region, f.auth.Region)
	setString(flags.Changed("tenant-id"), &cfg.Auth.TenantID, f.auth.TenantID)
	setString(flags.Changed("subscription-id"), &cfg.Auth.SubscriptionID, f.auth.SubscriptionID)
	setString(flags.Changed("client-id"), &cfg.Auth.ClientID, f.auth.ClientID)
	if secret := os.Getenv("AZURE_CLIENT_SECRET"); secret != "" && cfg.Auth.ClientSecret == "" {
		cfg.Auth.ClientSecret = secret
	}
	if flags.Changed("include-tags") {
		cfg.IncludeTags = f.includeTags
	}

	if flags.Changed("categories") {
		cfg.Categories = make(map[string]bool, len(f.categories))
		for _, c := range f.categories {
			cfg.Categories[strings.TrimSpace(c)] = true
		}
	} else if len(cfg.Categories) == 0 {
		cfg.Categories = providers.DefaultCategories(cfg.Provider)
	}

	for key, value := range map[string]string{
		scan.FilterNamePrefix: f.namePrefix,
		scan.FilterPathPrefix: f.pathPrefix,
		scan.FilterRoleType:   f.roleType,
	} {
		if value == "" {
			continue
		}
		if cfg.Filters == nil {
			cfg.Filters = make(map[string]string)
		}
		cfg.Filters[key] = value
	}

	return cfg, nil
}

func setString(changed bool, dst *string, value string) {
	if changed {
		*dst = value
	}
}

func newScanStartCmd() *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run a scan and wait for it to finish",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, application.cfg.Scan.WaitTimeout)
			defer cancel()

			id, err := application.scans.Start(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to start scan: %w", err)
			}
			fmt.Printf("Scan %s started (%s)\n", id, cfg.Provider)

			state, err := followScan(ctx, id)
			if err != nil {
				return fmt.Errorf("scan %s did not finish: %w", id, err)
			}

			if getOutputFormat() != "table" {
				return printOutput(scanView(state))
			}
			printScan(state)
			if state.Status == scan.StatusFailed {
				return fmt.Errorf("scan failed: %s", state.Message)
			}
			return nil
		},
	}
	f.register(cmd)

	return cmd
}

// followScan prints progress changes until the scan reaches a terminal state
func followScan(ctx context.Context, id string) (*scan.ScanState, error) {
	ticker := time.NewTicker(scanPollInterval)
	defer ticker.Stop()

	lastProgress, lastMessage := -1, ""
	for {
		state, err := application.scans.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		if state.Progress != lastProgress || state.Message != lastMessage {
			fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", state.Progress, state.Message)
			lastProgress, lastMessage = state.Progress, state.Message
		}
		if state.Status.IsTerminal() {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newScanStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <scan-id>",
		Short: "Show the state of a scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := application.scans.Status(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get scan: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(scanView(state))
			}
			printScan(state)
			return nil
		},
	}
}

func newScanListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := application.scans.List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list scans: %w", err)
			}

			if getOutputFormat() != "table" {
				views := make([]scanSummary, 0, len(states))
				for _, st := range states {
					views = append(views, scanView(st))
				}
				return printOutput(views)
			}

			t := NewTable("ID", "PROVIDER", "STATUS", "PROGRESS", "STARTED", "MESSAGE")
			for _, st := range states {
				started := st.StartedAt
				t.AddRow(
					st.ID,
					string(st.Provider),
					formatStatus(string(st.Status)),
					strconv.Itoa(st.Progress)+"%",
					formatTime(&started),
					truncate(st.Message, 50),
				)
			}
			t.Render()
			return nil
		},
	}
}

func newScanCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories <provider>",
		Short: "List the categories a provider can scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := providers.CategoryNames(scan.Provider(strings.ToLower(args[0])))
			if len(names) == 0 {
				return fmt.Errorf("unsupported provider %q", args[0])
			}
			if getOutputFormat() != "table" {
				return printOutput(names)
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

// scanSummary is the printable view of a scan; the document itself is reachable through query
type scanSummary struct {
	ID          string         `json:"id" yaml:"id"`
	Provider    scan.Provider  `json:"provider" yaml:"provider"`
	Status      scan.Status    `json:"status" yaml:"status"`
	Progress    int            `json:"progress" yaml:"progress"`
	Message     string         `json:"message" yaml:"message"`
	StartedAt   time.Time      `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Summary     map[string]int `json:"summary,omitempty" yaml:"summary,omitempty"`
}

func scanView(st *scan.ScanState) scanSummary {
	return scanSummary{
		ID:          st.ID,
		Provider:    st.Provider,
		Status:      st.Status,
		Progress:    st.Progress,
		Message:     st.Message,
		StartedAt:   st.StartedAt,
		CompletedAt: st.CompletedAt,
		Summary:     st.Summary(),
	}
}

func printScan(st *scan.ScanState) {
	printHeading("Scan %s", st.ID)
	fmt.Printf("Provider:  %s\n", st.Provider)
	fmt.Printf("Status:    %s\n", formatStatus(string(st.Status)))
	fmt.Printf("Progress:  %d%%\n", st.Progress)
	fmt.Printf("Message:   %s\n", st.Message)
	fmt.Printf("Started:   %s\n", formatTime(&st.StartedAt))
	fmt.Printf("Completed: %s\n", formatTime(st.CompletedAt))

	summary := st.Summary()
	if len(summary) == 0 {
		return
	}
	categories := make([]string, 0, len(summary))
	for c := range summary {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	fmt.Println()
	t := NewTable("CATEGORY", "RECORDS")
	for _, c := range categories {
		t.AddRow(c, strconv.Itoa(summary[c]))
	}
	t.Render()
}
