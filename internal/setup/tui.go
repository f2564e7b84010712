// Package setup implements the interactive configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/bitalgo/bitalgo/config"
	"github.com/bitalgo/bitalgo/internal/domain"
)

// GeneratedConfigPath is where the wizard writes its result.
const GeneratedConfigPath = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// Answers collected by the wizard.
type Answers struct {
	Platform  string
	Pair      string
	Interval  string
	Periods   string
	Amount    string
	Watchlist string
	WebAddr   string
}

func defaultAnswers() Answers {
	return Answers{
		Platform: config.DefaultPlatform,
		Pair:     config.DefaultPair,
		Interval: config.DefaultInterval,
		Periods:  strconv.Itoa(config.DefaultPeriods),
		Amount:   config.DefaultAmount,
		WebAddr:  config.DefaultWebAddr,
	}
}

func step(title string) {
	fmt.Print("\033[H\033[2J") // clear screen
	fmt.Println(headerStyle.Render("BITALGO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(title))
}

// RunTUI launches the terminal configuration wizard and writes GeneratedConfigPath.
func RunTUI() error {
	a := defaultAnswers()
	var confirm bool

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BITALGO CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Simulate buying a fixed amount every period.\n"))

	// platform
	fmt.Println(stepStyle.Render("STEP 1: PLATFORM"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select the exchange to read prices from").
				Options(
					huh.NewOption("Bithumb", config.PlatformBithumb),
					huh.NewOption("Binance", config.PlatformBinance),
					huh.NewOption("Bybit", config.PlatformBybit),
					huh.NewOption("Hyperliquid", config.PlatformHyperliquid),
				).
				Value(&a.Platform),
		),
	).Run()
	if err != nil {
		return err
	}

	// pair and watchlist
	step("STEP 2: ASSET")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trading Pair").
				Description("Must contain underscore (e.g. BTC_KRW)").
				Value(&a.Pair).
				Validate(validatePair),
			huh.NewInput().
				Title("Watchlist").
				Description("Comma separated pairs for the live price board, empty for the trading pair").
				Value(&a.Watchlist).
				Validate(validateWatchlist),
		),
	).Run()
	if err != nil {
		return err
	}

	// horizon
	step("STEP 3: HORIZON")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Candle Interval").
				Description("e.g. 24h, 1h, 30m").
				Value(&a.Interval),
			huh.NewInput().
				Title("Periods").
				Description("Number of trailing closes to simulate").
				Value(&a.Periods).
				Validate(validatePeriods),
		),
	).Run()
	if err != nil {
		return err
	}

	// contribution
	step("STEP 4: CONTRIBUTION")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Amount per period").
				Description("Quote currency spent every period (e.g. 1000)").
				Value(&a.Amount).
				Validate(validateAmount),
			huh.NewInput().
				Title("Dashboard address").
				Value(&a.WebAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	step("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Platform: %s\nPair: %s\nInterval: %s\nPeriods: %s\nAmount: %s\n",
		a.Platform, a.Pair, a.Interval, a.Periods, a.Amount,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := WriteConfig(GeneratedConfigPath, a); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", GeneratedConfigPath)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

// BuildConfig converts wizard answers into the yaml config shape.
func BuildConfig(a Answers) (config.ConfigTmp, error) {
	if err := validatePair(a.Pair); err != nil {
		return config.ConfigTmp{}, err
	}
	if err := validateAmount(a.Amount); err != nil {
		return config.ConfigTmp{}, err
	}
	if err := validatePeriods(a.Periods); err != nil {
		return config.ConfigTmp{}, err
	}
	if err := validateWatchlist(a.Watchlist); err != nil {
		return config.ConfigTmp{}, err
	}

	periods, _ := strconv.Atoi(strings.TrimSpace(a.Periods))

	return config.ConfigTmp{
		Platform:  a.Platform,
		Pair:      strings.ToUpper(strings.TrimSpace(a.Pair)),
		Interval:  strings.TrimSpace(a.Interval),
		Periods:   periods,
		Amount:    strings.TrimSpace(a.Amount),
		Watchlist: splitWatchlist(a.Watchlist),
		WebAddr:   strings.TrimSpace(a.WebAddr),
	}, nil
}

// WriteConfig writes the answers as a single-entry yaml config list.
func WriteConfig(path string, a Answers) error {
	cfgTmp, err := BuildConfig(a)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal([]config.ConfigTmp{cfgTmp})
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func validatePair(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("pair cannot be empty")
	}
	if _, err := domain.ParsePair(s); err != nil {
		return fmt.Errorf("invalid format: must be BASE_QUOTE (e.g. BTC_KRW)")
	}
	return nil
}

func validateAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

func validatePeriods(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("must be a whole number >= 1")
	}
	return nil
}

func validateWatchlist(s string) error {
	for _, p := range splitWatchlist(s) {
		if err := validatePair(p); err != nil {
			return fmt.Errorf("%q: %w", p, err)
		}
	}
	return nil
}

func splitWatchlist(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
