package auth

import (
	"fmt"
	"os/exec"
	"runtime"
)

// BrowserOpener opens the authorization URL in the user's default
// browser. On headless hosts Open fails and the logged URL is the
// fallback.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}
