// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"encoding/binary"
	"fmt"

	"github.com/farcasterxyz/hubd/types"
)

// Encode serializes msg for primary-key storage. Per spec.md §4.3: when
// DataBytes is set, the message is re-encoded with Data cleared to avoid
// storing the payload twice; Decode repopulates Data from DataBytes on
// load.
func Encode(msg *types.Message) ([]byte, error) {
	dataBytes, err := msg.CanonicalBytes()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(dataBytes)+4+20+1+64+1+32)
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(dataBytes)))
	buf = append(buf, l[:]...)
	buf = append(buf, dataBytes...)
	buf = append(buf, msg.Hash[:]...)
	buf = append(buf, byte(msg.HashScheme))
	buf = append(buf, msg.Signature[:]...)
	buf = append(buf, byte(msg.SignatureScheme))
	buf = append(buf, msg.Signer[:]...)
	return buf, nil
}

// Decode repopulates a Message from its stored encoding, reconstructing
// Data from the stored DataBytes.
func Decode(b []byte) (*types.Message, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("store: truncated record")
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, fmt.Errorf("store: truncated data_bytes")
	}
	dataBytes := b[:n]
	b = b[n:]
	data, err := types.DecodeMessageData(dataBytes)
	if err != nil {
		return nil, err
	}
	if len(b) < 20+1+64+1+32 {
		return nil, fmt.Errorf("store: truncated envelope")
	}
	msg := &types.Message{Data: data, DataBytes: dataBytes}
	copy(msg.Hash[:], b[:20])
	b = b[20:]
	msg.HashScheme = types.HashScheme(b[0])
	b = b[1:]
	copy(msg.Signature[:], b[:64])
	b = b[64:]
	msg.SignatureScheme = types.SignatureScheme(b[0])
	b = b[1:]
	copy(msg.Signer[:], b[:32])
	return msg, nil
}
