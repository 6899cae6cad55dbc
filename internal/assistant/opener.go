package assistant

import (
	"io"

	"github.com/pkg/browser"
	"github.com/pkg/errors"

	"novashell/internal/ports"
)

// BrowserOpener opens URLs with the desktop's default browser.
type BrowserOpener struct{}

var _ ports.URLOpener = BrowserOpener{}

func init() {
	// xdg-open chatter would otherwise land on our stdout.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

func (BrowserOpener) OpenURL(url string) error {
	if err := browser.OpenURL(url); err != nil {
		return errors.Wrapf(err, "open %s", url)
	}
	return nil
}
