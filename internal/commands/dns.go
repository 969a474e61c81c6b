package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hostsolo/hostsolo/internal/ui"
	"github.com/hostsolo/hostsolo/pkg/config"
	"github.com/hostsolo/hostsolo/pkg/dns"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
	"github.com/hostsolo/hostsolo/pkg/httputil"
)

func newDNSCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dns",
		Short: "Manage DNS records",
	}

	var setupEnv, setupIP string
	var ttl int
	setup := &cobra.Command{
		Use:   "setup",
		Short: "Point an environment's domain at this server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dnsSetup(cmd.Context(), setupEnv, setupIP, ttl)
		},
	}
	setup.Flags().StringVarP(&setupEnv, "env", "e", DefaultEnv, "target environment")
	setup.Flags().StringVar(&setupIP, "ip", "", "IP address (detected when empty)")
	setup.Flags().IntVar(&ttl, "ttl", dns.DefaultTTL, "record TTL in seconds")

	list := &cobra.Command{
		Use:   "list",
		Short: "List DNS records for the domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dnsList(cmd.Context())
		},
	}

	var deleteEnv string
	var force bool
	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete an environment's A record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dnsDelete(cmd.Context(), deleteEnv, force)
		},
	}
	del.Flags().StringVarP(&deleteEnv, "env", "e", DefaultEnv, "target environment")
	del.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	var checkEnv, checkIP string
	check := &cobra.Command{
		Use:   "check",
		Short: "Check that an environment's domain resolves to this server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dnsCheck(cmd.Context(), checkEnv, checkIP)
		},
	}
	check.Flags().StringVarP(&checkEnv, "env", "e", DefaultEnv, "target environment")
	check.Flags().StringVar(&checkIP, "ip", "", "expected IP address (detected when empty)")

	cmd.AddCommand(setup, list, del, check)
	return cmd
}

func (a *App) targetIP(ctx context.Context, ip string) (string, error) {
	if ip != "" {
		if !httputil.IsValidIPv4(ip) {
			return "", errdefs.Invalid("ip", fmt.Sprintf("%q is not an IPv4 address", ip))
		}
		return ip, nil
	}
	detected, err := a.PublicIP(ctx)
	if err != nil {
		return "", fmt.Errorf("could not determine public IP: %w", err)
	}
	return detected, nil
}

func (a *App) dnsSetup(ctx context.Context, envName, ip string, ttl int) error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	env, err := ws.cfg.Environment(envName)
	if err != nil {
		return err
	}
	domain, _ := config.FullDomain(ws.cfg, envName)

	provider, err := a.dnsProvider(ws)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, ProviderTimeout)
	defer cancel()

	target, err := a.targetIP(ctx, ip)
	if err != nil {
		return err
	}

	a.printf("🌐 Setting up DNS for %s...\n", domain)
	a.printf("   IP: %s\n", target)

	record, err := provider.UpsertRecord(ctx, dns.UpsertRecordRequest{
		Domain: ws.cfg.Domain,
		Name:   env.RecordName(),
		Type:   dns.RecordTypeA,
		Value:  target,
		TTL:    ttl,
	})
	if err != nil {
		return fmt.Errorf("failed to set up DNS: %w", err)
	}

	a.logger().Infow("dns record upserted", "name", record.Name, "domain", record.Domain, "value", record.Value, "ttl", record.TTL)
	a.printf("✅ A record created/updated: %s → %s\n", domain, target)
	a.println()
	a.println("💡 DNS propagation may take a few minutes")
	a.printf("   Check it with: hostsolo dns check --env %s\n", envName)
	return nil
}

func (a *App) dnsList(ctx context.Context) error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	provider, err := a.dnsProvider(ws)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, ProviderTimeout)
	defer cancel()

	records, err := provider.ListRecords(ctx, ws.cfg.Domain)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	a.printf("🌐 DNS records for %s (%d record%s)\n", ws.cfg.Domain, len(records), ui.Plural(len(records)))
	a.println()
	if len(records) == 0 {
		a.println("   No records found")
		return nil
	}

	table := ui.NewTable("TYPE", "NAME", "CONTENT", "TTL")
	for _, r := range records {
		ttl := "-"
		if r.TTL > 0 {
			ttl = strconv.Itoa(r.TTL)
		}
		table.Row(string(r.Type), r.Name, ui.Truncate(r.Value, 48), ttl)
	}
	table.Print(a.Out)
	return nil
}

func (a *App) dnsDelete(ctx context.Context, envName string, force bool) error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	env, err := ws.cfg.Environment(envName)
	if err != nil {
		return err
	}
	domain, _ := config.FullDomain(ws.cfg, envName)

	provider, err := a.dnsProvider(ws)
	if err != nil {
		return err
	}

	if !force && !a.confirm(fmt.Sprintf("⚠️  Delete DNS record for %s?", domain)) {
		a.println("\n✅ Deletion cancelled")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, ProviderTimeout)
	defer cancel()

	a.printf("🗑️  Deleting DNS record for %s...\n", domain)
	if err := provider.DeleteRecord(ctx, ws.cfg.Domain, env.RecordName(), dns.RecordTypeA); err != nil {
		return fmt.Errorf("failed to delete DNS record: %w", err)
	}
	a.logger().Infow("dns record deleted", "name", env.RecordName(), "domain", ws.cfg.Domain)
	a.printf("✅ A record deleted: %s\n", domain)
	return nil
}

func (a *App) dnsCheck(ctx context.Context, envName, ip string) error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	domain, err := config.FullDomain(ws.cfg, envName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, ProviderTimeout)
	defer cancel()

	target, err := a.targetIP(ctx, ip)
	if err != nil {
		return err
	}

	a.printf("🔍 Checking %s...\n", domain)
	result := a.Verifier.Verify(ctx, domain, target)
	a.logger().Debugw("dns check", "host", domain, "expected", target, "actual", result.ActualIPs, "source", result.Source)

	if result.Error != nil {
		return &errdefs.ExternalError{Op: "dns lookup " + domain, Err: result.Error}
	}
	if result.Resolved {
		a.printf("✅ %s", dns.FormatVerificationResult(result))
		return nil
	}
	a.printf("⚠️  %s", dns.FormatVerificationResult(result))
	a.printf("💡 Run 'hostsolo dns setup --env %s' or wait for propagation\n", envName)
	return nil
}
