package dataset

import (
	"strings"

	"github.com/phuslu/log"
)

// ImageTag is the literal placeholder marking an image's position in a turn.
const ImageTag = "<image>"

var userRoles = map[string]struct{}{
	"user":  {},
	"human": {},
}

// FixImageTags reconciles the number of image placeholders in user turns with
// the number of images each record declares. A user turn whose placeholder
// count differs gets every placeholder stripped and exactly one placeholder
// per image, each followed by a newline, prepended to the remaining text.
// Matching turns, non-user turns and records without both an image field and
// a conversations list are carried over untouched. Every correction is logged
// with the record id and the before/after counts.
//
// The input is not mutated; corrected records are rebuilt.
func FixImageTags(records []any) []any {
	fixed := make([]any, 0, len(records))

	for _, entry := range records {
		record, ok := entry.(Document)
		if !ok {
			fixed = append(fixed, entry)
			continue
		}
		ref, hasImage := ImageRefOf(record)
		conversations, hasConversations := record["conversations"].([]any)
		if !hasImage || !hasConversations {
			fixed = append(fixed, entry)
			continue
		}

		numImages := ref.Count()
		fixedConversations := make([]any, 0, len(conversations))
		changed := false

		for _, turn := range conversations {
			turnDoc, ok := turn.(Document)
			if !ok {
				fixedConversations = append(fixedConversations, turn)
				continue
			}
			role, _ := turnDoc["from"].(string)
			value, isText := turnDoc["value"].(string)
			if _, isUser := userRoles[role]; !isUser || !isText {
				fixedConversations = append(fixedConversations, turn)
				continue
			}

			currentTags := strings.Count(value, ImageTag)
			if currentTags == numImages {
				fixedConversations = append(fixedConversations, turn)
				continue
			}

			stripped := strings.TrimSpace(strings.ReplaceAll(value, ImageTag, ""))
			fixedTurn := make(Document, len(turnDoc))
			for k, v := range turnDoc {
				fixedTurn[k] = v
			}
			fixedTurn["value"] = strings.Repeat(ImageTag+"\n", numImages) + stripped
			fixedConversations = append(fixedConversations, fixedTurn)
			changed = true

			log.Info().
				Str("id", recordID(record)).
				Int("before", currentTags).
				Int("after", numImages).
				Msg("fixed image tags")
		}

		if !changed {
			fixed = append(fixed, entry)
			continue
		}
		fixedRecord := make(Document, len(record))
		for k, v := range record {
			fixedRecord[k] = v
		}
		fixedRecord["conversations"] = fixedConversations
		fixed = append(fixed, fixedRecord)
	}
	return fixed
}

func recordID(record Document) string {
	if id, ok := record["id"].(string); ok {
		return id
	}
	return "unknown"
}
