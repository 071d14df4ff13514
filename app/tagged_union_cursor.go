package app

import (
	"encoding/json"
)

const (
	PostCursorTypeMostRecent PostCursorType = "MOST_RECENT"
	PostCursorTypeMostLiked  PostCursorType = "MOST_LIKED"
)

// TaggedUnionCursor is the cursor as exchanged with clients:
// {"cursorType": "MOST_RECENT", "cursor": {...}}.
type TaggedUnionCursor struct {
	PostCursor
	CursorType PostCursorType
}

func NewTaggedUnionCursor(cursorType PostCursorType, byUser string) (*TaggedUnionCursor, error) {
	switch cursorType {
	case PostCursorTypeMostRecent, "":
		return &TaggedUnionCursor{PostCursor: &MostRecentCursor{ByUser: byUser}, CursorType: PostCursorTypeMostRecent}, nil
	case PostCursorTypeMostLiked:
		return &TaggedUnionCursor{PostCursor: &MostLikedCursor{ByUser: byUser}, CursorType: cursorType}, nil
	default:
		return nil, ErrUnknownCursorType
	}
}

func (tuc *TaggedUnionCursor) UnmarshalJSON(data []byte) error {
	if tuc == nil {
		return nil
	}
	var rawJsonWithType struct {
		CursorType PostCursorType   `json:"cursorType"`
		Raw        *json.RawMessage `json:"cursor"`
	}
	if err := json.Unmarshal(data, &rawJsonWithType); err != nil {
		return err
	}

	tuc.CursorType = rawJsonWithType.CursorType

	var cursorRef PostCursor
	switch rawJsonWithType.CursorType {
	case PostCursorTypeMostRecent:
		cursorRef = &MostRecentCursor{}
	case PostCursorTypeMostLiked:
		cursorRef = &MostLikedCursor{}
	default:
		return ErrUnknownCursorType
	}

	if rawJsonWithType.Raw != nil {
		if err := json.Unmarshal(*rawJsonWithType.Raw, cursorRef); err != nil {
			return err
		}
	}

	tuc.PostCursor = cursorRef
	return nil
}

func (tuc *TaggedUnionCursor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CursorType PostCursorType `json:"cursorType"`
		Cursor     PostCursor     `json:"cursor"`
	}{tuc.CursorType, tuc.PostCursor})
}
