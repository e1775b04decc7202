package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig holds user key overrides. Blank fields keep the defaults.
type KeyConfig struct {
	Reload    string
	Save      string
	Copy      string
	FocusList string
	Help      string
	Complete  string
}

type keyMap struct {
	up         key.Binding
	down       key.Binding
	focusList  key.Binding
	openList   key.Binding
	copy       key.Binding
	complete   key.Binding
	reload     key.Binding
	save       key.Binding
	toggleHelp key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous item")),
		down:       key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next item")),
		focusList:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "focus list")),
		openList:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit first item")),
		copy:       key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy item")),
		complete:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "toggle done")),
		reload:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		save:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// applyConfig rebinds the configurable keys.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.reload, cfg.Reload, "ctrl+r", "reload")
	configureBinding(&k.save, cfg.Save, "ctrl+s", "save")
	configureBinding(&k.copy, cfg.Copy, "ctrl+y", "copy item")
	configureBinding(&k.focusList, cfg.FocusList, "esc", "focus list")
	configureBinding(&k.toggleHelp, cfg.Help, "?", "toggle help")
	configureBinding(&k.complete, cfg.Complete, "ctrl+x", "toggle done")
}

func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys turns one configured key into matcher keys plus its help label.
// Uppercase runes also match their shift+ form; multi-rune names match lowercased.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = strings.TrimSpace(fallback)
	}
	if strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + string(unicode.ToLower(r))}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.up, k.down, k.focusList, k.copy, k.toggleHelp, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.focusList, k.openList},
		{k.copy, k.complete, k.save, k.reload},
		{k.toggleHelp, k.quit},
	}
}
