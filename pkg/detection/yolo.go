package detection

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sort"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-rangefinder/internal/log"
)

// YOLOConfig holds YOLO detector configuration
type YOLOConfig struct {
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	MaxDetections    int
	InputWidth       int
	InputHeight      int
}

// DefaultYOLOConfig returns production defaults for YOLOv8n
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		MaxDetections:    100,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// YOLODetector runs a YOLOv8 ONNX model through OpenCV DNN.
type YOLODetector struct {
	net       gocv.Net
	config    YOLOConfig
	mu        sync.Mutex
	inputSize image.Point
	logger    *slog.Logger
}

// NewYOLO loads the model and returns a detector.
func NewYOLO(cfg YOLOConfig, logger *slog.Logger) (*YOLODetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	l := log.Or(logger, "detector")
	l.Info("model loaded", "path", cfg.ModelPath, "input", fmt.Sprintf("%dx%d", cfg.InputWidth, cfg.InputHeight))

	return &YOLODetector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
		logger:    l,
	}, nil
}

// Detect finds objects in a BGR frame and assigns per-class object ids.
func (d *YOLODetector) Detect(frame gocv.Mat) (Result, error) {
	if frame.Empty() {
		return Result{Counts: map[string]int{}}, fmt.Errorf("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(frame, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	dets := d.parseOutput(output, float32(frame.Cols()), float32(frame.Rows()))
	if len(dets) > 0 {
		d.logger.Debug("objects detected", "count", len(dets))
	}
	return AssignIDs(dets), nil
}

// parseOutput decodes the [1, 84, N] YOLOv8 tensor: 4 box values
// (cx, cy, w, h) followed by 80 class scores for each of N candidates.
func (d *YOLODetector) parseOutput(output gocv.Mat, imgW, imgH float32) []Detection {
	sizes := output.Size()
	if len(sizes) < 3 {
		return nil
	}
	cols := sizes[1] // 4 + classes
	rows := sizes[2] // candidates

	data, err := output.DataPtrFloat32()
	if err != nil {
		d.logger.Warn("unreadable model output", "error", err)
		return nil
	}

	var (
		boxes       []image.Rectangle
		confidences []float32
		classIDs    []int
	)
	scaleX := imgW / float32(d.config.InputWidth)
	scaleY := imgH / float32(d.config.InputHeight)

	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		maxClassID := 0
		for c := 4; c < cols; c++ {
			if score := data[c*rows+i]; score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}
		if maxScore < d.config.ConfidenceThresh {
			continue
		}

		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		box := image.Rect(
			int((cx-w/2)*scaleX), int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX), int((cy+h/2)*scaleY),
		).Intersect(image.Rect(0, 0, int(imgW), int(imgH)))
		if box.Empty() {
			continue
		}

		boxes = append(boxes, box)
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClassID)
	}
	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.config.ConfidenceThresh, d.config.NMSThresh)

	dets := make([]Detection, 0, len(indices))
	for _, idx := range indices {
		dets = append(dets, Detection{
			ClassID:    classIDs[idx],
			ClassName:  ClassName(classIDs[idx]),
			Confidence: float64(confidences[idx]),
			Box:        boxes[idx],
		})
	}
	return limitDetections(dets, d.config.MaxDetections)
}

// limitDetections keeps the n most confident detections, then restores
// left-to-right order so per-class ids follow screen position.
func limitDetections(dets []Detection, n int) []Detection {
	if n > 0 && len(dets) > n {
		sort.SliceStable(dets, func(i, j int) bool { return dets[i].Confidence > dets[j].Confidence })
		dets = dets[:n]
	}
	sort.SliceStable(dets, func(i, j int) bool {
		if dets[i].Box.Min.X != dets[j].Box.Min.X {
			return dets[i].Box.Min.X < dets[j].Box.Min.X
		}
		return dets[i].Box.Min.Y < dets[j].Box.Min.Y
	})
	return dets
}

// Close releases the detector resources
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
