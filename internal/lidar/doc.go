// Package lidar owns acquisition and resampling for a single spinning 2D
// range sensor.
//
// Responsibilities: the acquisition lifecycle (connect, health and model
// verification, scan start/stop guarded by an abnormal-read probe) and the
// per-cycle resampler that turns one raw batch into a uniformly
// angle-indexed, motion-compensated Scan.
// Key types: Driver, Resampler, Transport, RawPoint, Scan, SensorMount.
//
// Byte-level transport and wire decoding live behind the Transport
// interface; this package only sees decoded floating-point fields.
package lidar
