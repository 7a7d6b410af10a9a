package types

import (
	"github.com/ugorji/go/codec"
)

var msgpackHandle = newMsgpackHandle()

func newMsgpackHandle() *codec.MsgpackHandle {
	h := new(codec.MsgpackHandle)
	h.WriteExt = true
	h.RawToString = false
	return h
}

// Handle returns the MessagePack handle shared by every encoder in the node.
// It is safe for concurrent use once configured.
func Handle() *codec.MsgpackHandle {
	return msgpackHandle
}

// Encode serializes v with MessagePack.
func Encode(v interface{}) ([]byte, error) {
	var b []byte
	enc := codec.NewEncoderBytes(&b, msgpackHandle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b, nil
}

// Decode deserializes MessagePack data into v, which must be a pointer.
func Decode(data []byte, v interface{}) error {
	dec := codec.NewDecoderBytes(data, msgpackHandle)
	return dec.Decode(v)
}
