// Package distance estimates the real-world distance to detected objects
// from the pixel size of their bounding boxes.
//
// Estimates use the pinhole relation
//
//	distance = realSize * focalLength / pixelSize
//
// with a per-class real size, an optional per-class calibrated focal
// length, and multiplicative correction factors. People get a dedicated
// branch that compensates for bodies cropped by the frame edge. Every raw
// estimate is clamped to Config.MaxDistance and then smoothed per object
// by a median/MAD outlier filter with a recency-weighted mean.
//
// Object identity is the caller's business: the engine keys its history
// by the ObjectID it is handed and never infers identity. Reusing an id
// for an unrelated object mixes their histories until the next reset.
//
// All distances are in centimetres.
package distance
