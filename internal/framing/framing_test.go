package framing

import (
	"bufio"
	"bytes"
	"testing"
)

func TestWriteMsgReadMsgRoundTrip(t *testing.T) {
	var wire bytes.Buffer
	err := WriteMsg(&wire, func(b *Buffer) {
		b.WriteLiteral("classpath ")
		b.WriteString("/opt/app/lib.jar")
	})
	if err != nil {
		t.Fatalf("WriteMsg: %v", err)
	}

	msg, err := ReadMsg(bufio.NewReader(&wire))
	if err != nil {
		t.Fatalf("ReadMsg: %v", err)
	}

	var path string
	if !Match(msg, "classpath %s", &path) {
		t.Fatalf("Match failed on %q", msg)
	}
	if path != "/opt/app/lib.jar" {
		t.Errorf("path = %q, want /opt/app/lib.jar", path)
	}
}

func TestWriteIntVLQGrouping(t *testing.T) {
	cases := []struct {
		val  uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x00}},
		{300, []byte{0x82, 0x2c}},
	}
	for _, c := range cases {
		var b Buffer
		b.WriteInt(c.val)
		if !bytes.Equal(b.Bytes(), c.want) {
			t.Errorf("WriteInt(%d) = %x, want %x", c.val, b.Bytes(), c.want)
		}
	}
}

func TestMatchRejectsWrongLiteral(t *testing.T) {
	var b Buffer
	b.WriteLiteral("exit ")
	b.WriteInt(0)

	var status uint32
	if Match(b.Bytes(), "run %i", &status) {
		t.Fatal("Match should not accept exit message against run format")
	}
}

func TestMatchTailMustBeFinalField(t *testing.T) {
	var b Buffer
	b.WriteLiteral("1")
	b.WriteTail([]byte("hello stdout"))

	var data []byte
	if !Match(b.Bytes(), "1%t", &data) {
		t.Fatalf("expected 1%%t to match")
	}
	if string(data) != "hello stdout" {
		t.Errorf("data = %q, want %q", data, "hello stdout")
	}
}

func TestMatchPartialPrefixFailsCleanly(t *testing.T) {
	var b Buffer
	b.WriteLiteral("con-raw-on")

	// con-req-size shares the "con-r" prefix with con-raw-on; a naive
	// one-pass matcher could leak state here if it allocated before
	// checking the tail literal.
	if Match(b.Bytes(), "con-req-size") {
		t.Fatal("Match should not confuse con-raw-on with con-req-size")
	}
	if !Match(b.Bytes(), "con-raw-on") {
		t.Fatal("Match should accept its own literal")
	}
}

func TestWriteDataLengthPrefixed(t *testing.T) {
	var b Buffer
	b.WriteData([]byte{1, 2, 3})
	want := []byte{0x03, 1, 2, 3}
	if !bytes.Equal(b.Bytes(), want) {
		t.Errorf("WriteData = %x, want %x", b.Bytes(), want)
	}
}
