package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"glasscribe/session"
)

// stdoutSink prints session events line by line, one event per line, so
// headless runs can be driven and asserted by scripts.
type stdoutSink struct{}

func (stdoutSink) StateChanged(s session.State) {
	fmt.Printf("STATE %s\n", s)
}

func (stdoutSink) Status(msg string) {
	fmt.Printf("STATUS %s\n", msg)
}

func (stdoutSink) Segment(e session.Entry, evicted bool) {
	fmt.Printf("SEGMENT %s: %s\n", e.Speaker, e.Text)
	if evicted {
		fmt.Println("EVICTED")
	}
}

func (stdoutSink) ConversationCleared() {
	fmt.Println("CLEARED")
}

// runHeadless drives the controller from stdin commands until EOF or
// quit. One command per line.
func runHeadless(ctrl *session.Controller) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		if cmd == "" || strings.HasPrefix(cmd, "#") {
			continue
		}
		switch cmd {
		case "connect":
			ctrl.Post(session.ConnectIntent{})
		case "record":
			ctrl.Post(session.StartRecordIntent{})
		case "stop":
			ctrl.Post(session.StopRecordIntent{})
		case "disconnect":
			ctrl.Post(session.DisconnectIntent{})
		case "enroll":
			ctrl.Post(session.EnrollIntent{})
		case "exclude on":
			ctrl.Post(session.ExclusionIntent{Exclude: true})
		case "exclude off":
			ctrl.Post(session.ExclusionIntent{Exclude: false})
		case "quit":
			ctrl.Post(session.DisconnectIntent{})
			return
		default:
			fmt.Printf("UNKNOWN %s\n", cmd)
		}
	}
}
