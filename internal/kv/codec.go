// ABOUTME: Protobuf wire encoding of (tag, slot) keys and item records
// ABOUTME: Hand-numbered fields via protowire so no generated code is needed

package kv

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/2389/feedstore/internal/feed"
)

var errMalformed = errors.New("malformed record")

// Key fields.
const (
	keyTag  protowire.Number = 1
	keySlot protowire.Number = 2
)

// Item fields.
const (
	itemTitle       protowire.Number = 1
	itemLink        protowire.Number = 2
	itemDescription protowire.Number = 3
	itemCreator     protowire.Number = 4
	itemCreatedAt   protowire.Number = 5
)

func encodeKey(tag string, slot uint64) []byte {
	b := make([]byte, 0, len(tag)+12)
	b = protowire.AppendTag(b, keyTag, protowire.BytesType)
	b = protowire.AppendString(b, tag)
	b = protowire.AppendTag(b, keySlot, protowire.VarintType)
	b = protowire.AppendVarint(b, slot)
	return b
}

func decodeKey(b []byte) (tag string, slot uint64, err error) {
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch {
		case num == keyTag && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(v)
			tag = s
			return n, nil
		case num == keySlot && typ == protowire.VarintType:
			u, n := protowire.ConsumeVarint(v)
			slot = u
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, v), nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("decoding key: %w", err)
	}
	return tag, slot, nil
}

func encodeItem(item feed.Item) []byte {
	size := len(item.Title) + len(item.Link) + len(item.Description) + len(item.Creator) + 32
	b := make([]byte, 0, size)
	b = appendString(b, itemTitle, item.Title)
	b = appendString(b, itemLink, item.Link)
	b = appendString(b, itemDescription, item.Description)
	b = appendString(b, itemCreator, item.Creator)
	b = protowire.AppendTag(b, itemCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(item.CreatedAt))
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func decodeItem(b []byte) (feed.Item, error) {
	var item feed.Item
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if typ == protowire.BytesType {
			s, n := protowire.ConsumeString(v)
			switch num {
			case itemTitle:
				item.Title = s
			case itemLink:
				item.Link = s
			case itemDescription:
				item.Description = s
			case itemCreator:
				item.Creator = s
			}
			return n, nil
		}
		if num == itemCreatedAt && typ == protowire.VarintType {
			u, n := protowire.ConsumeVarint(v)
			item.CreatedAt = protowire.DecodeZigZag(u)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, v), nil
	})
	if err != nil {
		return feed.Item{}, fmt.Errorf("decoding item: %w", err)
	}
	return item, nil
}

// consumeFields walks every field in b, handing the value bytes to fn which
// returns how many bytes it consumed.
func consumeFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", errMalformed, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}
