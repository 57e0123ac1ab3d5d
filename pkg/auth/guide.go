package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowAppPasswordGuide prints the steps for creating a Bluesky app password
func ShowAppPasswordGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "🔑 APP PASSWORD SETUP")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "skycrawl signs in with an app password, never your main password.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Open https://bsky.app/settings/app-passwords while signed in")
	fmt.Fprintln(w, "STEP 2: Click 'Add App Password' and give it a name such as 'skycrawl'")
	fmt.Fprintln(w, "STEP 3: Copy the generated value (format xxxx-xxxx-xxxx-xxxx)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Then provide it in one of these ways:")
	fmt.Fprintf(w, "   • export %s=<handle> %s=<app password>\n", EnvUsername, EnvPassword)
	fmt.Fprintln(w, "   • set atproto.username in skycrawl.yaml and run with --save-credentials")
	fmt.Fprintln(w, "   • run interactively and enter it when prompted")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Accounts on a self-hosted PDS also need --endpoint or ATPROTO_ENDPOINT.")
	fmt.Fprintln(w, rule)
}
