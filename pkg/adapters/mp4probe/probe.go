// Package mp4probe reads video track metadata from MP4 files.
package mp4probe

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/multicam/pkg/ports"
)

// ErrNoVideoTrack is returned when the file has no video track.
var ErrNoVideoTrack = errors.New("mp4probe: no video track found")

// Prober implements ports.VideoInspector.
type Prober struct{}

// New creates a Prober.
func New() *Prober {
	return &Prober{}
}

// Inspect reads metadata from the MP4 file at path.
func (p *Prober) Inspect(path string) (ports.VideoInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ports.VideoInfo{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return InspectReader(f)
}

// InspectReader reads metadata from an MP4 stream.
func InspectReader(r io.ReadSeeker) (ports.VideoInfo, error) {
	file, err := mp4.DecodeFile(r)
	if err != nil {
		return ports.VideoInfo{}, fmt.Errorf("decode mp4: %w", err)
	}

	if file.IsFragmented() && file.Init != nil && file.Init.Moov != nil {
		trak := videoTrack(file.Init.Moov)
		if trak == nil {
			return ports.VideoInfo{}, ErrNoVideoTrack
		}
		info := trackInfo(trak)
		info.Fragmented = true
		countFragments(file, trak, &info)
		return info, nil
	}

	if file.Moov == nil {
		return ports.VideoInfo{}, ErrNoVideoTrack
	}
	trak := videoTrack(file.Moov)
	if trak == nil {
		return ports.VideoInfo{}, ErrNoVideoTrack
	}
	info := trackInfo(trak)
	if stbl := trak.Mdia.Minf.Stbl; stbl != nil && stbl.Stsz != nil {
		info.Samples = int(stbl.Stsz.SampleNumber)
	}
	if mdhd := trak.Mdia.Mdhd; mdhd != nil && mdhd.Timescale > 0 {
		info.DurationMs = int(mdhd.Duration * 1000 / uint64(mdhd.Timescale))
	}
	return info, nil
}

func videoTrack(moov *mp4.MoovBox) *mp4.TrakBox {
	for _, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
			continue
		}
		return trak
	}
	return nil
}

// trackInfo reads codec and geometry from the sample description.
func trackInfo(trak *mp4.TrakBox) ports.VideoInfo {
	info := ports.VideoInfo{Codec: "unknown"}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		info.Codec = child.Type()
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			info.Width = int(vse.Width)
			info.Height = int(vse.Height)
			break
		}
	}
	return info
}

func countFragments(file *mp4.File, trak *mp4.TrakBox, info *ports.VideoInfo) {
	var trex *mp4.TrexBox
	if mvex := file.Init.Moov.Mvex; mvex != nil && trak.Tkhd != nil {
		for _, t := range mvex.Trexs {
			if t.TrackID == trak.Tkhd.TrackID {
				trex = t
				break
			}
		}
	}

	var dur uint64
	for _, seg := range file.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				continue
			}
			info.Samples += len(samples)
			for _, s := range samples {
				dur += uint64(s.Dur)
			}
		}
	}
	if mdhd := trak.Mdia.Mdhd; mdhd != nil && mdhd.Timescale > 0 {
		info.DurationMs = int(dur * 1000 / uint64(mdhd.Timescale))
	}
}

// Geometry returns the video size of an MP4 file.
func Geometry(path string) (width, height int, err error) {
	info, err := New().Inspect(path)
	if err != nil {
		return 0, 0, err
	}
	return info.Width, info.Height, nil
}

var _ ports.VideoInspector = (*Prober)(nil)
