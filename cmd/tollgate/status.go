package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tollgate/internal/config"
	"tollgate/internal/payment"
	"tollgate/internal/state"
)

// statusCmd prints an offline summary of config and persisted state.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tollgate configuration and state summary",
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	store := state.New(cfg.StatePath(), logger)
	if err := store.Load(); err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	fmt.Println("tollgate status")
	fmt.Println("===============")
	fmt.Printf("Config file:     %s\n", configPath)
	fmt.Printf("State file:      %s\n", cfg.StatePath())
	fmt.Printf("Admin chat:      %d\n", cfg.Telegram.AdminChatID)

	ov := store.Overrides()
	fmt.Printf("VIP channel:     %d\n", effectiveChannel(ov.Channels.VIP, cfg.Channels.VIP))
	fmt.Printf("Dark channel:    %d\n", effectiveChannel(ov.Channels.Dark, cfg.Channels.Dark))
	fmt.Println()

	fmt.Printf("Known users:     %d\n", len(store.KnownUsers()))
	fmt.Printf("Pending reviews: %d\n", store.PendingCount())
	fmt.Printf("Purchases:       %d\n", len(store.Purchases()))
	fmt.Println()

	sum := store.Income(state.WindowToday, time.Now())
	fmt.Printf("Today:           %d orders, ₹%s + $%s\n",
		sum.Orders,
		humanize.CommafWithDigits(sum.TotalINR, 2),
		humanize.CommafWithDigits(sum.TotalUSD, 2))
	fmt.Println()

	fmt.Println("Prices (UPI):")
	prices := store.Prices()
	for _, plan := range []payment.Plan{payment.PlanVIP, payment.PlanDark, payment.PlanBoth} {
		amount, _ := payment.Quote(prices, plan, payment.MethodUPI)
		fmt.Printf("  %-28s ₹%s\n", plan.Label(), humanize.CommafWithDigits(amount, 2))
	}
	return nil
}

func effectiveChannel(override, fallback int64) int64 {
	if override != 0 {
		return override
	}
	return fallback
}
