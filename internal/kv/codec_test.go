package kv

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []LogRecord{
		{Type: Normal, Key: []byte("k1"), Value: []byte("v1")},
		{Type: Tombstone, Key: []byte("k2"), Value: nil},
		{Type: Normal, Key: []byte("k"), Value: []byte{}},
	}

	for _, rec := range cases {
		encoded := Encode(rec)
		header, err := DecodeHeader(encoded[:HeaderSize])
		if err != nil {
			t.Fatalf("DecodeHeader: %v", err)
		}
		if int(header.KeyLen) != len(rec.Key) || int(header.ValueLen) != len(rec.Value) {
			t.Fatalf("length mismatch: got key=%d value=%d want key=%d value=%d",
				header.KeyLen, header.ValueLen, len(rec.Key), len(rec.Value))
		}
		key := encoded[HeaderSize : HeaderSize+len(rec.Key)]
		value := encoded[HeaderSize+len(rec.Key):]
		if !VerifyCRC(header, key, value) {
			t.Fatalf("CRC did not round-trip for %+v", rec)
		}
	}
}

func TestVerifyCRCDetectsCorruption(t *testing.T) {
	rec := LogRecord{Type: Normal, Key: []byte("k"), Value: []byte("v")}
	encoded := Encode(rec)
	encoded[HeaderSize] ^= 0xFF // flip a key byte

	header, err := DecodeHeader(encoded[:HeaderSize])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	key := encoded[HeaderSize : HeaderSize+len(rec.Key)]
	value := encoded[HeaderSize+len(rec.Key):]
	if VerifyCRC(header, key, value) {
		t.Fatal("expected CRC mismatch after corruption")
	}
}

func TestHeaderSizeIsThirteen(t *testing.T) {
	if HeaderSize != 13 {
		t.Fatalf("HeaderSize = %d, want 13", HeaderSize)
	}
}
