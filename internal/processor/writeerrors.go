package processor

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/fyrsmithlabs/docgateway/internal/errcode"
)

// transformWriteErrors rewrites the backend's per-document failure
// entries into the gateway error shape, tagging each message with the
// request's correlation id. Documents without a writeErrors array pass
// through untouched. Entry ordering is preserved.
func transformWriteErrors(doc bson.Raw, activityID string) (bson.Raw, error) {
	if _, err := doc.LookupErr("writeErrors"); err != nil {
		return doc, nil
	}

	elems, err := doc.Elements()
	if err != nil {
		return nil, errcode.NewInternal("malformed backend response")
	}

	out := make(bson.D, 0, len(elems))
	for _, elem := range elems {
		key, err := elem.KeyErr()
		if err != nil {
			return nil, errcode.NewInternal("malformed backend response")
		}
		value, err := elem.ValueErr()
		if err != nil {
			return nil, errcode.NewInternal("malformed backend response")
		}
		if key != "writeErrors" {
			out = append(out, bson.E{Key: key, Value: value})
			continue
		}
		entries, err := transformErrorEntries(value, activityID)
		if err != nil {
			return nil, err
		}
		out = append(out, bson.E{Key: key, Value: entries})
	}

	raw, err := bson.Marshal(out)
	if err != nil {
		return nil, errcode.NewInternalf("failed to rebuild write response: %v", err)
	}
	return bson.Raw(raw), nil
}

func transformErrorEntries(value bson.RawValue, activityID string) (bson.A, error) {
	arr, ok := value.ArrayOK()
	if !ok {
		return nil, errcode.NewInternal("malformed backend response")
	}
	values, err := arr.Values()
	if err != nil {
		return nil, errcode.NewInternal("malformed backend response")
	}

	entries := make(bson.A, 0, len(values))
	for _, v := range values {
		entryDoc, ok := v.DocumentOK()
		if !ok {
			entries = append(entries, v)
			continue
		}
		entry, err := transformErrorEntry(entryDoc, activityID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func transformErrorEntry(entryDoc bson.Raw, activityID string) (bson.D, error) {
	elems, err := entryDoc.Elements()
	if err != nil {
		return nil, errcode.NewInternal("malformed backend response")
	}
	entry := make(bson.D, 0, len(elems))
	for _, elem := range elems {
		key, err := elem.KeyErr()
		if err != nil {
			return nil, errcode.NewInternal("malformed backend response")
		}
		value, err := elem.ValueErr()
		if err != nil {
			return nil, errcode.NewInternal("malformed backend response")
		}
		if key == "errmsg" {
			msg, _ := value.StringValueOK()
			entry = append(entry, bson.E{
				Key:   key,
				Value: fmt.Sprintf("%s - ActivityId: %s", msg, activityID),
			})
			continue
		}
		entry = append(entry, bson.E{Key: key, Value: value})
	}
	return entry, nil
}
