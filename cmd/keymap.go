package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bnema/waycomp/internal/config"
	"github.com/bnema/waycomp/internal/ui"
	"github.com/bnema/waycomp/internal/xkb"
	"github.com/spf13/cobra"
)

var (
	keymapNames xkb.RuleNames
	keymapList  bool
	keymapAll   bool
)

var keymapCmd = &cobra.Command{
	Use:   "keymap",
	Short: "Compile a keymap and print its key table",
	Long: `Compile the keymap a newly detected keyboard would get and print it.
Names left empty come from XKB_DEFAULT_*, then from the keyboard section of
the configuration.`,
	RunE: runKeymap,
}

func init() {
	f := keymapCmd.Flags()
	f.StringVar(&keymapNames.Rules, "rules", "", "Rules name")
	f.StringVar(&keymapNames.Model, "model", "", "Keyboard model")
	f.StringVar(&keymapNames.Layout, "layout", "", "Comma separated layouts")
	f.StringVar(&keymapNames.Variant, "variant", "", "Comma separated variants")
	f.StringVar(&keymapNames.Options, "options", "", "Comma separated options")
	f.BoolVar(&keymapList, "list", false, "List available layouts and options")
	f.BoolVar(&keymapAll, "all", false, "Include keys without printable symbols")
	rootCmd.AddCommand(keymapCmd)
}

// newCompiler returns a keymap context with the configured defaults
func newCompiler() *xkb.Context {
	ctx := xkb.NewContext(xkb.ContextNoFlags)
	ctx.SetDefaults(config.Get().Keyboard.RuleNames())
	return ctx
}

func runKeymap(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	ctx := newCompiler()

	if keymapList {
		printLayouts(cmd, ctx)
		return nil
	}

	keymap, err := ctx.NewKeymapFromNames(keymapNames)
	if err != nil {
		return fmt.Errorf("failed to compile keymap: %w", err)
	}

	layouts := make([]string, keymap.NumLayouts())
	for i := range layouts {
		layouts[i] = keymap.LayoutName(i)
	}
	fmt.Fprintln(w, ui.FormatHeader("Keymap", keymap.Names().String()))
	fmt.Fprintf(w, "Layouts:   %s\n", strings.Join(layouts, ", "))

	mods := make([]string, keymap.NumMods())
	for i := range mods {
		mods[i] = keymap.ModGetName(xkb.ModIndex(i))
	}
	fmt.Fprintf(w, "Modifiers: %s\n\n", strings.Join(mods, " "))

	var rows [][]string
	for _, code := range keymap.Keycodes() {
		row, ok := keyRow(keymap, code)
		if ok || keymapAll {
			rows = append(rows, row)
		}
	}
	headers := []string{"CODE", "TYPE"}
	for i := range layouts {
		headers = append(headers, fmt.Sprintf("GROUP %d", i+1))
	}
	fmt.Fprintln(w, ui.Table(headers, rows))
	return nil
}

// keyRow renders the symbols of every group of a key. It reports whether
// the key produces text on any level.
func keyRow(keymap *xkb.Keymap, code xkb.Keycode) ([]string, bool) {
	typ, _ := keymap.KeyType(code, 0)
	row := []string{fmt.Sprintf("%d", code.Evdev()), typ.String()}
	printable := false
	for layout := 0; layout < keymap.NumLayouts(); layout++ {
		var levels []string
		for level := 0; level < keymap.NumLevelsForKey(code, layout); level++ {
			syms := keymap.KeyGetSymsByLevel(code, layout, level)
			if len(syms) == 0 {
				levels = append(levels, "-")
				continue
			}
			names := make([]string, len(syms))
			for i, s := range syms {
				names[i] = s.Name()
				if s.Rune() != 0 && !s.IsModifier() {
					printable = true
				}
			}
			levels = append(levels, strings.Join(names, "+"))
		}
		row = append(row, strings.Join(levels, " "))
	}
	return row, printable
}

func printLayouts(cmd *cobra.Command, ctx *xkb.Context) {
	w := cmd.OutOrStdout()
	var rows [][]string
	for _, name := range ctx.Layouts() {
		l, _ := ctx.Layout(name)
		rows = append(rows, []string{name, "", l.Description})
		variants := make([]string, 0, len(l.Variants))
		for variant := range l.Variants {
			variants = append(variants, variant)
		}
		sort.Strings(variants)
		for _, variant := range variants {
			rows = append(rows, []string{name, variant, l.Variants[variant].Description})
		}
	}
	fmt.Fprintln(w, ui.FormatHeader("Layouts", ""))
	fmt.Fprintln(w, ui.Table([]string{"LAYOUT", "VARIANT", "DESCRIPTION"}, rows))

	rows = nil
	for _, name := range xkb.Options() {
		desc, _ := xkb.OptionDescription(name)
		rows = append(rows, []string{name, desc})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.FormatHeader("Options", ""))
	fmt.Fprintln(w, ui.Table([]string{"OPTION", "DESCRIPTION"}, rows))
}
