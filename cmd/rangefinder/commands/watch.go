package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/pkg/distance"
	"github.com/teslashibe/go-rangefinder/pkg/rangefinder"
)

// WatchCmd prints live readings streamed by a server.
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print live distance readings from a running server",
	Long: `Connect to /ws/distances on a server started with "run --serve" and
print one line per frame.`,
	RunE: runWatch,
}

func init() {
	WatchCmd.Flags().String("server", "", "Server URL (default http://localhost:<server.port>)")
	WatchCmd.Flags().String("unit", "cm", "Distance unit: cm or m")
}

// wsURL turns an http(s) base URL into the distance stream URL.
func wsURL(base string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	case !strings.HasPrefix(base, "ws://") && !strings.HasPrefix(base, "wss://"):
		base = "ws://" + base
	}
	return base + "/ws/distances"
}

// formatFrame renders one frame as a single line, nearest object first.
func formatFrame(f rangefinder.Frame, unit string) string {
	var parts []string
	readings := append([]rangefinder.Reading(nil), f.Readings...)
	sort.SliceStable(readings, func(i, j int) bool {
		a, b := readings[i].Distance, readings[j].Distance
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	for _, r := range readings {
		if r.Distance == nil {
			parts = append(parts, r.ObjectID+": -")
			continue
		}
		label := distance.FormatLabel(r.ObjectID, *r.Distance, unit)
		parts = append(parts, fmt.Sprintf("%s (%s)", label, r.Category))
	}
	if len(parts) == 0 {
		parts = []string{"no objects"}
	}
	return f.Time.Format("15:04:05.000") + "  " + strings.Join(parts, ", ")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	unit, _ := cmd.Flags().GetString("unit")
	url := wsURL(serverURL(cmd))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return errors.WithHint(errors.Wrapf(err, "connect %s", url),
			`start a server with "rangefinder run --serve"`)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	return printFrames(ctx.Done(), conn, cmd.OutOrStdout(), unit)
}

type jsonReader interface {
	ReadJSON(v any) error
}

func printFrames(done <-chan struct{}, conn jsonReader, w io.Writer, unit string) error {
	for {
		var f rangefinder.Frame
		if err := conn.ReadJSON(&f); err != nil {
			select {
			case <-done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Wrap(err, "read frame")
		}
		fmt.Fprintln(w, formatFrame(f, unit))
	}
}
