package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bnema/waycomp/internal/backend/auto"
	"github.com/bnema/waycomp/internal/config"
	"github.com/bnema/waycomp/internal/xkb"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively choose the keyboard layout and backends",
	RunE:  runSetup,
}

func init() {
	configCmd.AddCommand(configSetupCmd)
}

// setupAnswers holds the values collected by the setup form
type setupAnswers struct {
	Layout   string // layout or layout(variant)
	Options  []string
	Backends []string
}

func runSetup(cmd *cobra.Command, args []string) error {
	answers := currentAnswers(config.Get())

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Keyboard Layout").
				Description("Compiler default for keyboards without XKB_DEFAULT_LAYOUT").
				Options(huh.NewOptions(layoutChoices(newCompiler())...)...).
				Value(&answers.Layout),
			huh.NewMultiSelect[string]().
				Title("Keyboard Options").
				Options(huh.NewOptions(xkb.Options()...)...).
				Value(&answers.Options),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Backends").
				Description("Leave empty to autodetect").
				Options(huh.NewOptions(auto.Types()...)...).
				Value(&answers.Backends),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	applyAnswers(answers)
	if err := config.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to: %s\n", config.GetConfigPath())
	return nil
}

// layoutChoices lists every layout followed by its variants
func layoutChoices(ctx *xkb.Context) []string {
	var choices []string
	for _, name := range ctx.Layouts() {
		choices = append(choices, name)
		l, _ := ctx.Layout(name)
		variants := make([]string, 0, len(l.Variants))
		for variant := range l.Variants {
			variants = append(variants, fmt.Sprintf("%s(%s)", name, variant))
		}
		sort.Strings(variants)
		choices = append(choices, variants...)
	}
	return choices
}

func currentAnswers(cfg *config.Config) setupAnswers {
	a := setupAnswers{
		Layout:   cfg.Keyboard.Layout,
		Backends: append([]string(nil), cfg.Backend.Types...),
	}
	if cfg.Keyboard.Variant != "" {
		a.Layout = fmt.Sprintf("%s(%s)", cfg.Keyboard.Layout, cfg.Keyboard.Variant)
	}
	for _, opt := range strings.Split(cfg.Keyboard.Options, ",") {
		if opt = strings.TrimSpace(opt); opt != "" {
			a.Options = append(a.Options, opt)
		}
	}
	return a
}

// applyAnswers stores the answers in viper so Save writes them
func applyAnswers(a setupAnswers) {
	layout, variant, _ := strings.Cut(a.Layout, "(")
	viper.Set("keyboard.layout", layout)
	viper.Set("keyboard.variant", strings.TrimSuffix(variant, ")"))
	viper.Set("keyboard.options", strings.Join(a.Options, ","))
	viper.Set("backend.types", a.Backends)
}
