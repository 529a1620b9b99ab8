package cmd

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/ThomasT75/uinput"
	"github.com/bnema/waycomp/internal/logger"
	"github.com/bnema/waycomp/internal/xkb"
	evdev "github.com/gvalkov/golang-evdev"
	"github.com/spf13/cobra"
)

var (
	injectDevice string
	injectDelay  time.Duration
	injectSettle time.Duration
)

var injectCmd = &cobra.Command{
	Use:   "inject <key>...",
	Short: "Type keys through a virtual uinput keyboard",
	Long: `Create a virtual keyboard with uinput and tap the given keys. Keys are
keysym names (a, A, Escape, Return), single characters or raw kernel key
codes. This drives the evdev backend end to end: run 'waycomp run' in
another terminal with LOG_LEVEL=debug to watch the keysyms arrive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInject,
}

func init() {
	injectCmd.Flags().StringVar(&injectDevice, "device", "/dev/uinput", "uinput device path")
	injectCmd.Flags().DurationVar(&injectDelay, "delay", 50*time.Millisecond, "Delay between keys")
	injectCmd.Flags().DurationVar(&injectSettle, "settle", time.Second, "Wait for the compositor to pick the device up")
	rootCmd.AddCommand(injectCmd)
}

// keyStroke is a kernel key code, optionally typed with Shift held
type keyStroke struct {
	code  int
	shift bool
}

// resolveKeys maps arguments to key strokes using the first layout of the
// keymap
func resolveKeys(keymap *xkb.Keymap, args []string) ([]keyStroke, error) {
	strokes := make([]keyStroke, 0, len(args))
	for _, arg := range args {
		if n, err := strconv.Atoi(arg); err == nil {
			strokes = append(strokes, keyStroke{code: n})
			continue
		}

		sym, ok := xkb.KeysymFromName(arg)
		if !ok && utf8.RuneCountInString(arg) == 1 {
			r, _ := utf8.DecodeRuneInString(arg)
			sym, ok = xkb.Latin1(r), true
		}
		if !ok {
			return nil, fmt.Errorf("unknown key %q", arg)
		}

		stroke, found := findKeysym(keymap, sym)
		if !found {
			return nil, fmt.Errorf("key %q is not reachable in layout %s", arg, keymap.LayoutName(0))
		}
		strokes = append(strokes, stroke)
	}
	return strokes, nil
}

func findKeysym(keymap *xkb.Keymap, sym xkb.Keysym) (keyStroke, bool) {
	for _, level := range []int{0, 1} {
		for _, code := range keymap.Keycodes() {
			if level >= keymap.NumLevelsForKey(code, 0) {
				continue
			}
			for _, s := range keymap.KeyGetSymsByLevel(code, 0, level) {
				if s == sym {
					return keyStroke{code: int(code.Evdev()), shift: level == 1}, true
				}
			}
		}
	}
	return keyStroke{}, false
}

func runInject(cmd *cobra.Command, args []string) error {
	keymap, err := newCompiler().NewKeymapFromNames(xkb.RuleNames{})
	if err != nil {
		return fmt.Errorf("failed to compile keymap: %w", err)
	}
	strokes, err := resolveKeys(keymap, args)
	if err != nil {
		return err
	}

	keyboard, err := uinput.CreateKeyboard(injectDevice, []byte("waycomp virtual keyboard"))
	if err != nil {
		return fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	defer func() {
		if err := keyboard.Close(); err != nil {
			logger.Errorf("Failed to close virtual keyboard: %v", err)
		}
	}()

	time.Sleep(injectSettle)
	for _, s := range strokes {
		if s.shift {
			if err := keyboard.KeyDown(evdev.KEY_LEFTSHIFT); err != nil {
				return fmt.Errorf("failed to press shift: %w", err)
			}
		}
		if err := keyboard.KeyPress(s.code); err != nil {
			return fmt.Errorf("failed to tap key %d: %w", s.code, err)
		}
		if s.shift {
			if err := keyboard.KeyUp(evdev.KEY_LEFTSHIFT); err != nil {
				return fmt.Errorf("failed to release shift: %w", err)
			}
		}
		logger.Debugf("Injected key %d (shift=%v)", s.code, s.shift)
		time.Sleep(injectDelay)
	}
	logger.Infof("Injected %d key(s)", len(strokes))
	return nil
}
