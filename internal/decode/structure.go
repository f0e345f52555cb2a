package decode

import (
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/finmail/internal/model"
)

// partVisitor is called for every leaf part of a body structure with the
// part's IMAP section path.
type partVisitor func(path []int, part *imap.BodyStructureSinglePart) bool

// walkParts visits the leaf parts of bs depth-first. Returning false
// from visit stops the walk.
func walkParts(bs imap.BodyStructure, visit partVisitor) {
	walkPartsAt(bs, nil, visit)
}

func walkPartsAt(bs imap.BodyStructure, path []int, visit partVisitor) bool {
	switch part := bs.(type) {
	case *imap.BodyStructureMultiPart:
		for i, child := range part.Children {
			childPath := append(append([]int(nil), path...), i+1)
			if !walkPartsAt(child, childPath, visit) {
				return false
			}
		}
		return true

	case *imap.BodyStructureSinglePart:
		if !visit(path, part) {
			return false
		}
		// Descend into attached messages that are not attachments
		// themselves, e.g. forwarded mail shown inline.
		if part.MessageRFC822 != nil && part.MessageRFC822.BodyStructure != nil &&
			!strings.EqualFold(dispositionOf(part), "attachment") {
			inner := part.MessageRFC822.BodyStructure
			if _, single := inner.(*imap.BodyStructureSinglePart); single {
				return walkPartsAt(inner, append(append([]int(nil), path...), 1), visit)
			}
			return walkPartsAt(inner, path, visit)
		}
		return true
	}
	return true
}

// Locator formats an IMAP section path, e.g. "2.1.2". The body of a
// single-part message is section "1".
func Locator(path []int) string {
	if len(path) == 0 {
		return "1"
	}
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// SectionPath returns the path to pass in a FETCH body section for a
// part found at path.
func SectionPath(path []int) []int {
	if len(path) == 0 {
		return []int{1}
	}
	return path
}

// Attachments walks bs recursively and returns every part, at any depth,
// whose disposition is "attachment". The filename comes from the
// disposition's filename parameter, falling back to the content-type
// name parameter.
func Attachments(bs imap.BodyStructure) []model.Attachment {
	var attachments []model.Attachment
	walkParts(bs, func(path []int, part *imap.BodyStructureSinglePart) bool {
		if !strings.EqualFold(dispositionOf(part), "attachment") {
			return true
		}
		attachments = append(attachments, model.Attachment{
			Filename: filenameOf(part),
			Subtype:  strings.ToLower(part.Subtype),
			Size:     int64(part.Size),
			Part:     Locator(path),
		})
		return true
	})
	return attachments
}

// HasAttachments reports whether any part of bs is an attachment.
func HasAttachments(bs imap.BodyStructure) bool {
	found := false
	walkParts(bs, func(_ []int, part *imap.BodyStructureSinglePart) bool {
		if strings.EqualFold(dispositionOf(part), "attachment") {
			found = true
			return false
		}
		return true
	})
	return found
}

// PreviewPart finds the part best suited for a listing preview: the
// first inline text/plain part, else the first inline text/html part.
func PreviewPart(bs imap.BodyStructure) (path []int, part *imap.BodyStructureSinglePart, ok bool) {
	var htmlPath []int
	var htmlPart *imap.BodyStructureSinglePart

	walkParts(bs, func(p []int, candidate *imap.BodyStructureSinglePart) bool {
		if !strings.EqualFold(candidate.Type, "text") ||
			strings.EqualFold(dispositionOf(candidate), "attachment") {
			return true
		}
		switch {
		case strings.EqualFold(candidate.Subtype, "plain"):
			path, part, ok = p, candidate, true
			return false
		case strings.EqualFold(candidate.Subtype, "html") && htmlPart == nil:
			htmlPath, htmlPart = p, candidate
		}
		return true
	})

	if ok {
		return path, part, true
	}
	if htmlPart != nil {
		return htmlPath, htmlPart, true
	}
	return nil, nil, false
}

// MediaType returns the lower-cased "type/subtype" of a part.
func MediaType(part *imap.BodyStructureSinglePart) string {
	return strings.ToLower(part.Type) + "/" + strings.ToLower(part.Subtype)
}

func dispositionOf(part *imap.BodyStructureSinglePart) string {
	if part.Extended == nil || part.Extended.Disposition == nil {
		return ""
	}
	return part.Extended.Disposition.Value
}

func filenameOf(part *imap.BodyStructureSinglePart) string {
	if part.Extended != nil && part.Extended.Disposition != nil {
		if name := param(part.Extended.Disposition.Params, "filename"); name != "" {
			return Header(name)
		}
	}
	return Header(param(part.Params, "name"))
}

// param looks up a MIME parameter case-insensitively.
func param(params map[string]string, key string) string {
	if v, ok := params[key]; ok {
		return v
	}
	for k, v := range params {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
