package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/internal/httpc"
	"github.com/teslashibe/go-rangefinder/pkg/web"
)

// CalibrateCmd calibrates one class from a single measurement.
var CalibrateCmd = &cobra.Command{
	Use:   "calibrate <class> <distance_cm> <pixels>",
	Short: "Calibrate a class from one measurement",
	Long: `Record that an object of <class> measured <pixels> wide (or tall, with
--height) at a known distance of <distance_cm>.

Without --server the calibration file is updated directly. With --server
the measurement is sent to a running control surface, which applies it
immediately.

Examples:
  rangefinder calibrate person 200 310 --height
  rangefinder calibrate laptop 80 240 --server http://localhost:8080`,
	Args: cobra.ExactArgs(3),
	RunE: runCalibrate,
}

func init() {
	CalibrateCmd.Flags().Bool("height", false, "The pixel size is the box height")
	CalibrateCmd.Flags().String("server", "", "Send to a running server instead of editing the file")
}

func parseMeasurement(args []string) (web.CalibrateRequest, error) {
	req := web.CalibrateRequest{Class: args[0]}

	var err error
	if req.RealDistance, err = strconv.ParseFloat(args[1], 64); err != nil {
		return req, errors.Wrapf(err, "distance_cm %q", args[1])
	}
	if req.PixelSize, err = strconv.ParseFloat(args[2], 64); err != nil {
		return req, errors.Wrapf(err, "pixels %q", args[2])
	}
	return req, nil
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	req, err := parseMeasurement(args)
	if err != nil {
		return err
	}
	req.IsHeight, _ = cmd.Flags().GetBool("height")

	if server, _ := cmd.Flags().GetString("server"); server != "" {
		var resp json.RawMessage
		if err := httpc.PostJSON(cmd.Context(), serverURL(cmd)+"/api/calibration", req, &resp); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(resp))
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	engine, store, err := openEngine(cmd, cfg)
	if err != nil {
		return err
	}
	if err := engine.CalibrateAndSave(req.Class, req.RealDistance, req.PixelSize, req.IsHeight); err != nil {
		return err
	}

	entry := engine.Calibration()[req.Class]
	fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintf("%s: focal_length=%.2f correction_factor=%.4f (%s)\n",
		req.Class, entry.FocalLength, entry.CorrectionFactor, store.Path()))
	return nil
}
