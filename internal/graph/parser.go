package graph

import (
	"fmt"
	"interactiveplayer/internal/models"
	"interactiveplayer/internal/schedule"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	graphPath   = "jsonGraph"
	videosKey   = "videos"
	momentsPath = "interactiveVideoMoments.value.momentsBySegment"

	// missingMillis stands in for absent or unreadable timestamps.
	missingMillis int64 = -1
)

// Options tunes how a document is accepted.
type Options struct {
	// RequireSingleVideo rejects documents where more than one video carries moments.
	// By default all videos are flattened into one catalog.
	RequireSingleVideo bool
}

// Result is the output of a successful parse.
type Result struct {
	Catalog  *models.Catalog
	Schedule *schedule.Schedule
	// Issues lists every non-fatal problem, in document order.
	Issues []Issue
	// VideoIDs lists the videos that contributed moments, in document order.
	VideoIDs []string
}

// ParseFile reads the document at path and parses it.
func ParseFile(path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("failed to read %s", path), Err: err}
	}
	return Parse(data, opts)
}

// Parse converts a moment graph document into a catalog and its schedule.
// Only structural problems with the graph or videos containers fail the parse;
// problems with individual entries are reported in Result.Issues.
func Parse(data []byte, opts Options) (*Result, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Reason: "document is not valid JSON"}
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &ParseError{Reason: "document root is not an object"}
	}
	graph := root.Get(graphPath)
	if !graph.IsObject() {
		return nil, &ParseError{Reason: fmt.Sprintf("missing or malformed %q", graphPath)}
	}
	videos := graph.Get(videosKey)
	if !videos.IsObject() {
		return nil, &ParseError{Reason: fmt.Sprintf("missing or malformed %q", graphPath+"."+videosKey)}
	}

	p := &parser{seen: make(map[string]struct{})}
	videos.ForEach(func(key, value gjson.Result) bool {
		p.parseVideo(key.String(), value)
		return true
	})

	if opts.RequireSingleVideo && len(p.videoIDs) > 1 {
		return nil, &ParseError{Reason: fmt.Sprintf("expected a single video, found %d (%s)", len(p.videoIDs), strings.Join(p.videoIDs, ", "))}
	}

	catalog := models.NewCatalog(p.moments)
	return &Result{
		Catalog:  catalog,
		Schedule: schedule.New(catalog),
		Issues:   p.issues,
		VideoIDs: p.videoIDs,
	}, nil
}

// parser accumulates the state of a single Parse call.
type parser struct {
	moments  []models.Moment
	issues   []Issue
	videoIDs []string
	seen     map[string]struct{}
}

func (p *parser) report(issue Issue) {
	p.issues = append(p.issues, issue)
}

func (p *parser) parseVideo(videoID string, video gjson.Result) {
	segments := video.Get(momentsPath)
	if !segments.IsObject() {
		p.report(Issue{Kind: SegmentSkipped, VideoID: videoID, Index: -1, Reason: "no " + momentsPath})
		return
	}
	p.videoIDs = append(p.videoIDs, videoID)

	segments.ForEach(func(key, value gjson.Result) bool {
		segmentKey := key.String()
		if !value.IsArray() {
			p.report(Issue{Kind: SegmentSkipped, VideoID: videoID, SegmentKey: segmentKey, Index: -1, Reason: "segment is not an array"})
			return true
		}
		for i, entry := range value.Array() {
			p.parseEntry(videoID, segmentKey, i, entry)
		}
		return true
	})
}

func (p *parser) parseEntry(videoID, segmentKey string, index int, entry gjson.Result) {
	if !entry.IsObject() {
		p.report(Issue{Kind: EntryMalformed, VideoID: videoID, SegmentKey: segmentKey, Index: index, Reason: "entry is not an object, dropped"})
		return
	}

	m := models.Moment{
		ID:         stringField(entry, "id"),
		StartMs:    millisField(entry, "startMs"),
		EndMs:      millisField(entry, "endMs"),
		Kind:       stringField(entry, "type"),
		BodyText:   stringField(entry, "bodyText"),
		VideoID:    videoID,
		SegmentKey: segmentKey,
	}

	issue := Issue{VideoID: videoID, SegmentKey: segmentKey, Index: index, MomentID: m.ID}
	m.Choices = p.parseChoices(m.ID, entry.Get("choices"), issue)

	if reason := malformedReason(m); reason != "" {
		issue.Kind = EntryMalformed
		issue.Reason = reason + ", excluded from schedule"
		p.report(issue)
	}

	// Entries without an id share the "" slot and are already reported as malformed.
	if _, dup := p.seen[m.ID]; dup && m.ID != "" {
		issue.Kind = DuplicateID
		issue.Reason = "replaces an earlier moment with the same id"
		p.report(issue)
	}
	p.seen[m.ID] = struct{}{}

	p.moments = append(p.moments, m)
}

func (p *parser) parseChoices(momentID string, raw gjson.Result, issue Issue) []models.Choice {
	if !raw.IsArray() {
		return nil
	}

	var choices []models.Choice
	for j, c := range raw.Array() {
		if !c.IsObject() {
			issue.Kind = ChoiceMalformed
			issue.Reason = fmt.Sprintf("choice %d is not an object, dropped", j)
			p.report(issue)
			continue
		}
		choices = append(choices, models.Choice{
			ID:              stringField(c, "id"),
			Text:            stringField(c, "text"),
			TargetSegmentID: stringField(c, "segmentId"),
			MomentID:        momentID,
		})
	}
	return choices
}

func malformedReason(m models.Moment) string {
	switch {
	case m.ID == "":
		return "missing id"
	case m.StartMs < 0:
		return "missing or negative startMs"
	case m.EndMs < 0:
		return "missing or negative endMs"
	case m.EndMs < m.StartMs:
		return fmt.Sprintf("endMs %d before startMs %d", m.EndMs, m.StartMs)
	}
	return ""
}

// stringField returns the field as a string, or "" when absent or null.
func stringField(obj gjson.Result, key string) string {
	v := obj.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return v.String()
}

// millisField returns the field as milliseconds, or missingMillis when absent or not an integer.
func millisField(obj gjson.Result, key string) int64 {
	v := obj.Get(key)
	switch v.Type {
	case gjson.Number:
		return v.Int()
	case gjson.String:
		if n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64); err == nil {
			return n
		}
	}
	return missingMillis
}
