package types

import (
	"encoding/binary"
	"fmt"
)

// EncodeMessageData produces the canonical byte encoding of a MessageData,
// used both as the hash preimage and as the on-disk form. The layout is a
// fixed-order concatenation of fields followed by a length-prefixed,
// type-tagged body — deterministic by construction, unlike a generic
// protobuf encoder, which is what the hash-then-sign invariant requires.
func EncodeMessageData(d *MessageData) ([]byte, error) {
	buf := make([]byte, 0, 64)
	var fidBytes [4]byte = d.Fid.Bytes()
	buf = append(buf, fidBytes[:]...)
	buf = append(buf, byte(d.Type))
	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], d.Timestamp)
	buf = append(buf, ts[:]...)
	buf = append(buf, byte(d.Network))

	body, err := encodeBody(d.Type, d.Body)
	if err != nil {
		return nil, err
	}
	var bl [4]byte
	binary.BigEndian.PutUint32(bl[:], uint32(len(body)))
	buf = append(buf, bl[:]...)
	buf = append(buf, body...)
	return buf, nil
}

func putString(buf []byte, s string) []byte {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(s)))
	buf = append(buf, l[:]...)
	return append(buf, s...)
}

func putBytes(buf []byte, b []byte) []byte {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	buf = append(buf, l[:]...)
	return append(buf, b...)
}

func encodeBody(t MessageType, body Body) ([]byte, error) {
	var buf []byte
	switch b := body.(type) {
	case CastAdd:
		buf = putString(buf, b.Text)
		if b.ParentFid != nil {
			buf = append(buf, 1)
			pf := b.ParentFid.Bytes()
			buf = append(buf, pf[:]...)
			buf = append(buf, b.ParentHash[:]...)
		} else {
			buf = append(buf, 0)
		}
		buf = putString(buf, b.ParentURL)
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(b.Mentions)))
		buf = append(buf, n[:]...)
		for i, m := range b.Mentions {
			mb := m.Bytes()
			buf = append(buf, mb[:]...)
			var pos [4]byte
			if i < len(b.MentionsPositions) {
				binary.BigEndian.PutUint32(pos[:], b.MentionsPositions[i])
			}
			buf = append(buf, pos[:]...)
		}
		binary.BigEndian.PutUint32(n[:], uint32(len(b.Embeds)))
		buf = append(buf, n[:]...)
		for _, e := range b.Embeds {
			buf = putString(buf, e)
		}
	case CastRemove:
		buf = append(buf, b.TargetHash[:]...)
	case ReactionAdd:
		buf = append(buf, byte(b.Type))
		buf = encodeReactionTarget(buf, b.TargetFid, b.TargetHash, b.TargetURL)
	case ReactionRemove:
		buf = append(buf, byte(b.Type))
		buf = encodeReactionTarget(buf, b.TargetFid, b.TargetHash, b.TargetURL)
	case LinkAdd:
		buf = putString(buf, b.Type)
		tf := b.TargetFid.Bytes()
		buf = append(buf, tf[:]...)
		if b.DisplayTime != nil {
			buf = append(buf, 1)
			var dt [4]byte
			binary.BigEndian.PutUint32(dt[:], *b.DisplayTime)
			buf = append(buf, dt[:]...)
		} else {
			buf = append(buf, 0)
		}
	case LinkRemove:
		buf = putString(buf, b.Type)
		tf := b.TargetFid.Bytes()
		buf = append(buf, tf[:]...)
	case VerificationAddAddress:
		buf = putBytes(buf, b.Address)
		buf = putBytes(buf, b.ClaimSignature)
		buf = putBytes(buf, b.BlockHash)
		buf = append(buf, byte(b.Protocol), b.VerificationType)
		var cid [4]byte
		binary.BigEndian.PutUint32(cid[:], b.ChainID)
		buf = append(buf, cid[:]...)
	case VerificationRemove:
		buf = putBytes(buf, b.Address)
	case UserDataAdd:
		buf = append(buf, byte(b.Type))
		buf = putString(buf, b.Value)
	case UsernameProof:
		buf = append(buf, byte(b.Type))
		buf = putBytes(buf, b.Name)
		buf = putBytes(buf, b.Owner)
		buf = putBytes(buf, b.Signature)
		fb := b.Fid.Bytes()
		buf = append(buf, fb[:]...)
	default:
		return nil, fmt.Errorf("types: unknown body for message type %s", t)
	}
	return buf, nil
}

// DecodeMessageData parses the canonical encoding EncodeMessageData
// produces.
func DecodeMessageData(b []byte) (*MessageData, error) {
	if len(b) < 4+1+4+1+4 {
		return nil, fmt.Errorf("types: truncated message data")
	}
	d := &MessageData{}
	d.Fid = FidFromBytes(b[:4])
	b = b[4:]
	d.Type = MessageType(b[0])
	b = b[1:]
	d.Timestamp = binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	d.Network = Network(b[0])
	b = b[1:]
	bl := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) < bl {
		return nil, fmt.Errorf("types: truncated message body")
	}
	body, err := decodeBody(d.Type, b[:bl])
	if err != nil {
		return nil, err
	}
	d.Body = body
	return d, nil
}

func getString(b []byte) (string, []byte, error) {
	if len(b) < 4 {
		return "", nil, fmt.Errorf("types: truncated string length")
	}
	l := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) < l {
		return "", nil, fmt.Errorf("types: truncated string")
	}
	return string(b[:l]), b[l:], nil
}

func getBytes(b []byte) ([]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("types: truncated bytes length")
	}
	l := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) < l {
		return nil, nil, fmt.Errorf("types: truncated bytes")
	}
	return b[:l], b[l:], nil
}

func decodeBody(t MessageType, b []byte) (Body, error) {
	switch t {
	case MessageTypeCastAdd:
		var c CastAdd
		var err error
		c.Text, b, err = getString(b)
		if err != nil {
			return nil, err
		}
		if len(b) < 1 {
			return nil, fmt.Errorf("types: truncated cast parent flag")
		}
		hasParent := b[0]
		b = b[1:]
		if hasParent == 1 {
			if len(b) < 24 {
				return nil, fmt.Errorf("types: truncated cast parent")
			}
			pf := FidFromBytes(b[:4])
			var ph [20]byte
			copy(ph[:], b[4:24])
			b = b[24:]
			c.ParentFid = &pf
			c.ParentHash = &ph
		}
		c.ParentURL, b, err = getString(b)
		if err != nil {
			return nil, err
		}
		if len(b) < 4 {
			return nil, fmt.Errorf("types: truncated mentions count")
		}
		n := binary.BigEndian.Uint32(b[:4])
		b = b[4:]
		for i := uint32(0); i < n; i++ {
			if len(b) < 8 {
				return nil, fmt.Errorf("types: truncated mention")
			}
			c.Mentions = append(c.Mentions, FidFromBytes(b[:4]))
			c.MentionsPositions = append(c.MentionsPositions, binary.BigEndian.Uint32(b[4:8]))
			b = b[8:]
		}
		if len(b) < 4 {
			return nil, fmt.Errorf("types: truncated embeds count")
		}
		n = binary.BigEndian.Uint32(b[:4])
		b = b[4:]
		for i := uint32(0); i < n; i++ {
			var e string
			e, b, err = getString(b)
			if err != nil {
				return nil, err
			}
			c.Embeds = append(c.Embeds, e)
		}
		return c, nil
	case MessageTypeCastRemove:
		if len(b) < 20 {
			return nil, fmt.Errorf("types: truncated cast remove")
		}
		var r CastRemove
		copy(r.TargetHash[:], b[:20])
		return r, nil
	case MessageTypeReactionAdd, MessageTypeReactionRemove:
		if len(b) < 1 {
			return nil, fmt.Errorf("types: truncated reaction type")
		}
		rtype := ReactionType(b[0])
		b = b[1:]
		fid, hash, url, _, err := decodeReactionTarget(b)
		if err != nil {
			return nil, err
		}
		if t == MessageTypeReactionAdd {
			return ReactionAdd{Type: rtype, TargetFid: fid, TargetHash: hash, TargetURL: url}, nil
		}
		return ReactionRemove{Type: rtype, TargetFid: fid, TargetHash: hash, TargetURL: url}, nil
	case MessageTypeLinkAdd:
		var l LinkAdd
		var err error
		l.Type, b, err = getString(b)
		if err != nil {
			return nil, err
		}
		if len(b) < 4 {
			return nil, fmt.Errorf("types: truncated link target")
		}
		l.TargetFid = FidFromBytes(b[:4])
		b = b[4:]
		if len(b) < 1 {
			return nil, fmt.Errorf("types: truncated link display-time flag")
		}
		has := b[0]
		b = b[1:]
		if has == 1 {
			if len(b) < 4 {
				return nil, fmt.Errorf("types: truncated link display-time")
			}
			dt := binary.BigEndian.Uint32(b[:4])
			l.DisplayTime = &dt
		}
		return l, nil
	case MessageTypeLinkRemove:
		var l LinkRemove
		var err error
		l.Type, b, err = getString(b)
		if err != nil {
			return nil, err
		}
		if len(b) < 4 {
			return nil, fmt.Errorf("types: truncated link target")
		}
		l.TargetFid = FidFromBytes(b[:4])
		return l, nil
	case MessageTypeVerificationAddAddress:
		var v VerificationAddAddress
		var err error
		v.Address, b, err = getBytes(b)
		if err != nil {
			return nil, err
		}
		v.ClaimSignature, b, err = getBytes(b)
		if err != nil {
			return nil, err
		}
		v.BlockHash, b, err = getBytes(b)
		if err != nil {
			return nil, err
		}
		if len(b) < 6 {
			return nil, fmt.Errorf("types: truncated verification tail")
		}
		v.Protocol = VerificationProtocol(b[0])
		v.VerificationType = b[1]
		v.ChainID = binary.BigEndian.Uint32(b[2:6])
		return v, nil
	case MessageTypeVerificationRemove:
		var v VerificationRemove
		var err error
		v.Address, _, err = getBytes(b)
		if err != nil {
			return nil, err
		}
		return v, nil
	case MessageTypeUserDataAdd:
		if len(b) < 1 {
			return nil, fmt.Errorf("types: truncated user data type")
		}
		u := UserDataAdd{Type: UserDataType(b[0])}
		var err error
		u.Value, _, err = getString(b[1:])
		if err != nil {
			return nil, err
		}
		return u, nil
	case MessageTypeUsernameProof:
		if len(b) < 1 {
			return nil, fmt.Errorf("types: truncated username proof type")
		}
		u := UsernameProof{Type: UsernameProofType(b[0])}
		b = b[1:]
		var err error
		u.Name, b, err = getBytes(b)
		if err != nil {
			return nil, err
		}
		u.Owner, b, err = getBytes(b)
		if err != nil {
			return nil, err
		}
		u.Signature, b, err = getBytes(b)
		if err != nil {
			return nil, err
		}
		if len(b) < 4 {
			return nil, fmt.Errorf("types: truncated username proof fid")
		}
		u.Fid = FidFromBytes(b[:4])
		return u, nil
	default:
		return nil, fmt.Errorf("types: unknown message type %d", t)
	}
}

func decodeReactionTarget(b []byte) (*Fid, *[20]byte, string, []byte, error) {
	if len(b) < 1 {
		return nil, nil, "", nil, fmt.Errorf("types: truncated reaction target tag")
	}
	tag := b[0]
	b = b[1:]
	switch tag {
	case 1:
		if len(b) < 24 {
			return nil, nil, "", nil, fmt.Errorf("types: truncated reaction fid target")
		}
		fid := FidFromBytes(b[:4])
		var hash [20]byte
		copy(hash[:], b[4:24])
		return &fid, &hash, "", b[24:], nil
	case 2:
		url, rest, err := getString(b)
		if err != nil {
			return nil, nil, "", nil, err
		}
		return nil, nil, url, rest, nil
	default:
		return nil, nil, "", b, nil
	}
}

func encodeReactionTarget(buf []byte, fid *Fid, hash *[20]byte, url string) []byte {
	switch {
	case fid != nil:
		buf = append(buf, 1)
		fb := fid.Bytes()
		buf = append(buf, fb[:]...)
		buf = append(buf, hash[:]...)
	case url != "":
		buf = append(buf, 2)
		buf = putString(buf, url)
	default:
		buf = append(buf, 0)
	}
	return buf
}
