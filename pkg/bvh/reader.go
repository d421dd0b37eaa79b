package bvh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/rotation"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
)

// parser walks a whitespace-separated token stream.
type parser struct {
	sc   *bufio.Scanner
	last string

	joints  []skeleton.Joint
	rootPos [3]int // channel slot of X, Y and Z position on the root
}

// Read parses a BVH document into its skeleton and motion clip. The root must
// declare three position and three rotation channels, every other joint
// exactly three rotation channels.
func Read(r io.Reader) (*skeleton.Skeleton, *motion.Clip, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)
	p := &parser{sc: sc}

	if err := p.expect("HIERARCHY"); err != nil {
		return nil, nil, err
	}
	if err := p.expect("ROOT"); err != nil {
		return nil, nil, err
	}
	if err := p.joint(-1); err != nil {
		return nil, nil, err
	}

	skel, err := skeleton.New(p.joints)
	if err != nil {
		return nil, nil, serr(-1, "invalid hierarchy", err)
	}

	clip, err := p.motion(skel)
	if err != nil {
		return nil, nil, err
	}
	return skel, clip, nil
}

func (p *parser) next() (string, error) {
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", serr(-1, "read failed", err)
		}
		return "", serr(-1, fmt.Sprintf("unexpected end of input after %q", p.last), nil)
	}
	p.last = p.sc.Text()
	return p.last, nil
}

func (p *parser) expect(want string) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if !strings.EqualFold(tok, want) {
		return serr(-1, fmt.Sprintf("expected %q, found %q", want, tok), nil)
	}
	return nil
}

func (p *parser) float() (float64, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, serr(-1, fmt.Sprintf("invalid number %q", tok), nil)
	}
	return v, nil
}

func (p *parser) vec() (r3.Vec, error) {
	var v [3]float64
	for i := range v {
		f, err := p.float()
		if err != nil {
			return r3.Vec{}, err
		}
		v[i] = f
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

func (p *parser) joint(parent int) error {
	name, err := p.next()
	if err != nil {
		return err
	}
	if err := p.expect("{"); err != nil {
		return err
	}
	if err := p.expect("OFFSET"); err != nil {
		return err
	}
	offset, err := p.vec()
	if err != nil {
		return err
	}
	order, err := p.channels(name, parent < 0)
	if err != nil {
		return err
	}

	idx := len(p.joints)
	p.joints = append(p.joints, skeleton.Joint{Name: name, Parent: parent, Offset: offset, ChannelOrder: order})

	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		switch strings.ToUpper(tok) {
		case "JOINT":
			if err := p.joint(idx); err != nil {
				return err
			}
		case "END":
			if err := p.endSite(idx); err != nil {
				return err
			}
		case "}":
			return nil
		default:
			return serr(-1, fmt.Sprintf("unexpected %q in joint %s", tok, name), nil)
		}
	}
}

func (p *parser) channels(joint string, root bool) (rotation.Order, error) {
	if err := p.expect("CHANNELS"); err != nil {
		return "", err
	}
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(tok)
	want := 3
	if root {
		want = 6
	}
	if err != nil || n != want {
		return "", serr(-1, fmt.Sprintf("unsupported channel layout on %s: %s channels, need %d", joint, tok, want), nil)
	}

	names := make([]string, n)
	for i := range names {
		if names[i], err = p.next(); err != nil {
			return "", err
		}
	}

	rot := names
	if root {
		for i, axis := range positionChannels {
			p.rootPos[i] = -1
			for k := 0; k < 3; k++ {
				if strings.EqualFold(names[k], axis) {
					p.rootPos[i] = k
				}
			}
			if p.rootPos[i] < 0 {
				return "", serr(-1, fmt.Sprintf("unsupported channel layout on %s: position channels must come first", joint), nil)
			}
		}
		rot = names[3:]
	}

	order, err := rotation.ParseChannels(rot)
	if err != nil {
		return "", serr(-1, "unsupported rotation order on "+joint, err)
	}
	return order, nil
}

func (p *parser) endSite(idx int) error {
	if err := p.expect("Site"); err != nil {
		return err
	}
	if err := p.expect("{"); err != nil {
		return err
	}
	if err := p.expect("OFFSET"); err != nil {
		return err
	}
	v, err := p.vec()
	if err != nil {
		return err
	}
	p.joints[idx].EndSite = &v
	return p.expect("}")
}

func (p *parser) motion(skel *skeleton.Skeleton) (*motion.Clip, error) {
	if err := p.expect("MOTION"); err != nil {
		return nil, err
	}
	if err := p.expect("Frames:"); err != nil {
		return nil, err
	}
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return nil, serr(-1, fmt.Sprintf("invalid frame count %q", tok), nil)
	}
	if err := p.expect("Frame"); err != nil {
		return nil, err
	}
	if err := p.expect("Time:"); err != nil {
		return nil, err
	}
	ft, err := p.float()
	if err != nil {
		return nil, err
	}
	if !(ft > 0) {
		return nil, serr(-1, fmt.Sprintf("invalid frame time %v", ft), nil)
	}

	clip := &motion.Clip{Window: motion.Window{Frames: make([]motion.Frame, 0, n), FrameTime: ft}}
	width := skel.ChannelCount()
	line := make([]float64, width)
	for i := 0; i < n; i++ {
		raw := make([]float64, width)
		for k := range raw {
			if raw[k], err = p.float(); err != nil {
				return nil, serr(i, fmt.Sprintf("line has %d values, need %d", k, width), err)
			}
		}
		// Reorder root position channels to X, Y, Z.
		copy(line, raw)
		for a, slot := range p.rootPos {
			line[a] = raw[slot]
		}
		f, err := motion.FromChannels(skel, line)
		if err != nil {
			return nil, serr(i, "invalid channel values", err)
		}
		clip.Frames = append(clip.Frames, f)
	}
	if p.sc.Scan() {
		return nil, serr(-1, fmt.Sprintf("data after %d declared frames", n), nil)
	}
	return clip, nil
}
