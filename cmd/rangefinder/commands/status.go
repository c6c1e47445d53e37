package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/internal/httpc"
	"github.com/teslashibe/go-rangefinder/pkg/web"
)

// StatusCmd prints a running server's status.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status web.StatusResponse
		if err := httpc.GetJSON(cmd.Context(), serverURL(cmd)+"/api/status", &status); err != nil {
			return err
		}
		out, err := renderStatus(status)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	StatusCmd.Flags().String("server", "", "Server URL (default http://localhost:<server.port>)")
}

func renderStatus(s web.StatusResponse) (string, error) {
	calibrated := strings.Join(s.Calibrated, ", ")
	if calibrated == "" {
		calibrated = "-"
	}
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Setting", "Value"},
		{"focal length", strconv.FormatFloat(s.FocalLength, 'f', 1, 64) + " px"},
		{"smoothing window", strconv.Itoa(s.SmoothFrames) + " frames"},
		{"max distance", strconv.FormatFloat(s.MaxDistance, 'f', 0, 64) + " cm"},
		{"min box size", strconv.FormatFloat(s.MinSizePx, 'f', 0, 64) + " px"},
		{"classes", strconv.Itoa(s.Classes)},
		{"calibrated", calibrated},
		{"tracked objects", strconv.Itoa(s.TrackedObjects)},
		{"stream subscribers", strconv.Itoa(s.Subscribers)},
		{"stream running", strconv.FormatBool(s.Streaming)},
		{"stream dropped", strconv.FormatInt(s.StreamDropped, 10)},
	}).Srender()
}
