// Package bvh reads and writes the Biovision hierarchy format: one HIERARCHY
// block declaring joints, offsets and channels, followed by a MOTION block
// with one line of channel values per frame.
package bvh

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// positionChannels are written for the root joint only.
var positionChannels = []string{"Xposition", "Yposition", "Zposition"}

// FrameChannels returns one motion line for frame: root position followed by
// each joint's Euler angles in degrees in its declared channel order.
func FrameChannels(skel *skeleton.Skeleton, frame motion.Frame) ([]float64, error) {
	values, err := motion.Channels(skel, frame)
	if err != nil {
		return nil, serr(-1, "joint count mismatch", err)
	}
	if len(values) != skel.ChannelCount() {
		return nil, serr(-1, fmt.Sprintf("%d channel values, need %d", len(values), skel.ChannelCount()), nil)
	}
	return values, nil
}

// Write serializes frames as a BVH document. Nothing is written when any
// frame fails to convert.
func Write(w io.Writer, skel *skeleton.Skeleton, frames []motion.Frame, frameTime float64) error {
	if !(frameTime > 0) || math.IsInf(frameTime, 0) {
		return serr(-1, fmt.Sprintf("invalid frame time %v", frameTime), nil)
	}
	for j := 0; j < skel.NumJoints(); j++ {
		if !skel.Order(j).Valid() {
			return serr(-1, fmt.Sprintf("unsupported rotation order %q on joint %d", skel.Order(j), j), nil)
		}
	}

	lines := make([][]float64, len(frames))
	for i, f := range frames {
		values, err := FrameChannels(skel, f)
		if err != nil {
			var se *SerializationError
			if errors.As(err, &se) {
				se.Frame = i
			}
			return err
		}
		lines[i] = values
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("HIERARCHY\n")
	writeJoint(bw, skel, 0)

	bw.WriteString("MOTION\n")
	fmt.Fprintf(bw, "Frames: %d\n", len(lines))
	fmt.Fprintf(bw, "Frame Time: %s\n", strconv.FormatFloat(frameTime, 'f', -1, 64))
	for _, line := range lines {
		for k, v := range line {
			if k > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(v, 'f', 6, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Marshal returns the BVH document for frames.
func Marshal(skel *skeleton.Skeleton, frames []motion.Frame, frameTime float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, skel, frames, frameTime); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJoint(bw *bufio.Writer, skel *skeleton.Skeleton, j int) {
	depth := skel.Depth(j)
	indent := strings.Repeat("\t", depth)
	joint := skel.Joint(j)

	keyword := "JOINT"
	channels := joint.ChannelOrder.Channels()
	if joint.Parent < 0 {
		keyword = "ROOT"
		channels = append(append([]string(nil), positionChannels...), channels...)
	}

	fmt.Fprintf(bw, "%s%s %s\n", indent, keyword, joint.Name)
	fmt.Fprintf(bw, "%s{\n", indent)
	fmt.Fprintf(bw, "%s\tOFFSET %s\n", indent, formatVec(joint.Offset))
	fmt.Fprintf(bw, "%s\tCHANNELS %d %s\n", indent, len(channels), strings.Join(channels, " "))
	for _, c := range skel.Children(j) {
		writeJoint(bw, skel, c)
	}
	if joint.EndSite != nil {
		fmt.Fprintf(bw, "%s\tEnd Site\n", indent)
		fmt.Fprintf(bw, "%s\t{\n", indent)
		fmt.Fprintf(bw, "%s\t\tOFFSET %s\n", indent, formatVec(*joint.EndSite))
		fmt.Fprintf(bw, "%s\t}\n", indent)
	}
	fmt.Fprintf(bw, "%s}\n", indent)
}

func formatVec(v r3.Vec) string {
	return strconv.FormatFloat(v.X, 'f', 6, 64) + " " +
		strconv.FormatFloat(v.Y, 'f', 6, 64) + " " +
		strconv.FormatFloat(v.Z, 'f', 6, 64)
}
