// Package export renders track segments into interchange formats.
// Everything here is pure formatting over point lists.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"fieldtrack/internal/core/model"
)

type Format string

const (
	FormatGPX  Format = "gpx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ContentType returns the MIME type for a format, or empty for an
// unknown one.
func (f Format) ContentType() string {
	switch f {
	case FormatGPX:
		return "application/gpx+xml"
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	default:
		return ""
	}
}

// Render serializes the segments in the requested format.
func Render(segments []*model.TrackSegment, format Format) ([]byte, error) {
	switch format {
	case FormatGPX:
		return renderGPX(segments)
	case FormatCSV:
		return renderCSV(segments)
	case FormatJSON:
		return json.MarshalIndent(segments, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

type gpxFile struct {
	XMLName xml.Name   `xml:"gpx"`
	Version string     `xml:"version,attr"`
	Creator string     `xml:"creator,attr"`
	Xmlns   string     `xml:"xmlns,attr"`
	Tracks  []gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name    string     `xml:"name"`
	Segment gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat       float64 `xml:"lat,attr"`
	Lon       float64 `xml:"lon,attr"`
	Elevation float64 `xml:"ele,omitempty"`
	Time      string  `xml:"time"`
}

// renderGPX wraps each segment as one <trk> with a single <trkseg>.
func renderGPX(segments []*model.TrackSegment) ([]byte, error) {
	file := gpxFile{
		Version: "1.1",
		Creator: "fieldtrack",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
	}

	for i, seg := range segments {
		track := gpxTrack{
			Name: fmt.Sprintf("track-%d %s", i+1, seg.SessionStart.Format("2006-01-02 15:04")),
		}
		for _, p := range seg.Points {
			track.Segment.Points = append(track.Segment.Points, gpxPoint{
				Lat:       p.Latitude,
				Lon:       p.Longitude,
				Elevation: p.Altitude,
				Time:      p.Timestamp.UTC().Format(time.RFC3339),
			})
		}
		file.Tracks = append(file.Tracks, track)
	}

	body, err := xml.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// renderCSV emits one row per point, tagged with its track index.
func renderCSV(segments []*model.TrackSegment) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"track", "timestamp", "latitude", "longitude", "rawLatitude", "rawLongitude", "speedKmh", "accuracyM", "altitudeM"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i, seg := range segments {
		for _, p := range seg.Points {
			row := []string{
				strconv.Itoa(i + 1),
				p.Timestamp.UTC().Format(time.RFC3339),
				formatFloat(p.Latitude),
				formatFloat(p.Longitude),
				formatFloat(p.RawLatitude),
				formatFloat(p.RawLongitude),
				formatFloat(p.Speed),
				formatFloat(p.Accuracy),
				formatFloat(p.Altitude),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
