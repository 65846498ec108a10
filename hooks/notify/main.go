// Command notify is a transition hook that shows a desktop notification
// when the scene changes mode. It uses osascript on macOS and notify-send
// elsewhere.
//
// Install it by building into a directory under the hooks directory next to
// the hook.json in this folder:
//
//	go build -o ~/.gesturetree/hooks/notify/notify ./hooks/notify
//	cp hooks/notify/hook.json ~/.gesturetree/hooks/notify/
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/ayusman/gesturetree/internal/hook"
)

// settings is the manifest's config block.
type settings struct {
	Title string `json:"title"`
}

func main() {
	var ev hook.Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode event: %v", err))
		return
	}
	if ev.Event != hook.EventTransition {
		writeErrorResponse(fmt.Sprintf("unknown event: %s", ev.Event))
		return
	}

	s := settings{Title: "GestureTree"}
	if len(ev.Config) > 0 {
		if err := json.Unmarshal(ev.Config, &s); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	if err := notify(s.Title, message(&ev)); err != nil {
		writeErrorResponse(fmt.Sprintf("notify failed: %v", err))
		return
	}
	writeSuccessResponse()
}

// message describes the transition in one line.
func message(ev *hook.Event) string {
	switch ev.To {
	case "FORMED":
		return "The tree is formed"
	case "CHAOS":
		if ev.From == "PHOTO_ZOOM" {
			return "Back to the scattered tree"
		}
		return "The tree exploded"
	case "PHOTO_ZOOM":
		return "Zooming in on a photo"
	}
	return fmt.Sprintf("%s -> %s", ev.From, ev.To)
}

func notify(title, body string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(body), strconv.Quote(title))
		cmd = exec.Command("osascript", "-e", script)
	} else {
		cmd = exec.Command("notify-send", title, body)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(hook.Response{Success: false, Error: errMsg})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(hook.Response{Success: true})
}
