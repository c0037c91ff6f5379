package dns

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-test/deep"

	"github.com/m-lab/netdissect/pdu"
)

func TestQueryRoundTrip(t *testing.T) {
	u := New()
	u.ID = 0x1234
	u.SetRD(true)
	if err := u.AddQuestion("www.example.com", TypeA, ClassIN); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}

	qs, err := u.Questions()
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(qs) != 1 || qs[0].Name != "www.example.com" || qs[0].Type != TypeA || qs[0].Class != ClassIN {
		t.Fatalf("unexpected question: %+v", qs)
	}

	wantEntry := append([]byte{
		0x03, 'w', 'w', 'w',
		0x07, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		0x03, 'c', 'o', 'm',
		0x00,
	}, 0x00, 0x01, 0x00, 0x01)
	if !bytes.Equal(u.RecordsData, wantEntry) {
		t.Fatalf("encoded question = %x, want %x", u.RecordsData, wantEntry)
	}
	if u.QDCount != 1 || u.ANCount != 0 {
		t.Fatalf("counts = %d/%d, want 1/0", u.QDCount, u.ANCount)
	}

	out, err := pdu.SerializeAll(u)
	if err != nil {
		t.Fatalf("SerializeAll: %v", err)
	}

	reparsed := New()
	if err := reparsed.Parse(out); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	rq, err := reparsed.Questions()
	if err != nil {
		t.Fatalf("reparse Questions: %v", err)
	}
	if len(rq) != 1 || rq[0].Name != "www.example.com" {
		t.Fatalf("round trip mismatch: %+v", rq)
	}
	if !reparsed.RD() {
		t.Fatalf("RD flag lost across round trip")
	}
}

func TestAnswerWithUncompressedCNAMERoundTrip(t *testing.T) {
	u := New()
	u.ID = 0xBEEF
	if err := u.AddQuestion("www.example.com", TypeA, ClassIN); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	// encodeName never emits pointers, so both the answer's name and its
	// rdata name go out uncompressed; decode-side compression is covered
	// by TestCompressedResponseSurvivesReserialization.
	if err := u.AddAnswer("www.example.com", TypeCNAME, ClassIN, 300, mustEncodeName(t, "alias.example.com")); err != nil {
		t.Fatalf("AddAnswer: %v", err)
	}

	out, err := pdu.SerializeAll(u)
	if err != nil {
		t.Fatalf("SerializeAll: %v", err)
	}
	reparsed := New()
	if err := reparsed.Parse(out); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	answers, err := reparsed.Answers()
	if err != nil {
		t.Fatalf("Answers: %v", err)
	}
	if len(answers) != 1 || answers[0].Name != "www.example.com" || answers[0].Type != TypeCNAME {
		t.Fatalf("unexpected answer: %+v", answers)
	}
	cname, err := answers[0].DomainName()
	if err != nil {
		t.Fatalf("DomainName: %v", err)
	}
	if cname != "alias.example.com" {
		t.Fatalf("cname = %q, want alias.example.com", cname)
	}
}

func mustEncodeName(t *testing.T, name string) []byte {
	t.Helper()
	b, err := encodeName(name)
	if err != nil {
		t.Fatalf("encodeName(%q): %v", name, err)
	}
	return b
}

// TestPointerShiftOnInsertion verifies the exact pointer-rewrite
// arithmetic: a pre-existing answer-section pointer targeting absolute
// offset 0x1a, with a 14-byte question spliced in ahead of it, becomes
// 0x1a+14=0x28.
func TestPointerShiftOnInsertion(t *testing.T) {
	// One answer record whose name is a single compression pointer to
	// absolute offset 0x1a (26): ptr bytes 0xC0,0x1A, then type=A,
	// class=IN, ttl=300, rdlength=0.
	answer := []byte{
		0xC0, 0x1A,
		0x00, 0x01,
		0x00, 0x01,
		0x00, 0x00, 0x01, 0x2C,
		0x00, 0x00,
	}
	u := New()
	u.ANCount = 1
	u.RecordsData = append([]byte(nil), answer...)
	u.AnswersIdx = 0
	u.AuthorityIdx = len(answer)
	u.AdditionalIdx = len(answer)

	// "abcd.com" encodes to exactly 10 bytes, so the question entry
	// (name + 2-byte type + 2-byte class) is exactly 14 bytes.
	if err := u.AddQuestion("abcd.com", TypeA, ClassIN); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}

	if u.AnswersIdx != 14 {
		t.Fatalf("AnswersIdx = %d, want 14", u.AnswersIdx)
	}
	got := u.RecordsData[u.AnswersIdx : u.AnswersIdx+2]
	want := []byte{0xC0, 0x28}
	if !bytes.Equal(got, want) {
		t.Fatalf("rewritten pointer = %x, want %x (0x1a+14=0x28)", got, want)
	}
}

// TestCompressedResponseSurvivesReserialization parses a hand-built
// response whose answer names are compression pointers back to the question
// name (and, inside the CNAME rdata, to the "example.com" suffix), then
// serializes and re-parses it. Pointers are preserved verbatim, and the
// second round's decoded records match the first's.
func TestCompressedResponseSurvivesReserialization(t *testing.T) {
	qname := []byte{
		0x03, 'w', 'w', 'w',
		0x07, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		0x03, 'c', 'o', 'm',
		0x00,
	}
	var data []byte
	data = append(data, qname...)
	data = append(data, 0x00, 0x01, 0x00, 0x01) // type A, class IN

	// Answer 1: name = pointer to packet offset 12 (the question name),
	// type A, 4-byte address.
	data = append(data, 0xC0, 0x0C)
	data = append(data, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x01, 0x2C, 0x00, 0x04)
	data = append(data, 93, 184, 216, 34)

	// Answer 2: same owner name by pointer, type CNAME; the rdata name
	// compresses its "example.com" suffix via a pointer to packet offset
	// 16 (records index 4).
	cnameRData := append([]byte{0x0C}, []byte("cname-target")...)
	cnameRData = append(cnameRData, 0xC0, 0x10)
	data = append(data, 0xC0, 0x0C)
	data = append(data, 0x00, 0x05, 0x00, 0x01, 0x00, 0x00, 0x01, 0x2C, 0x00, byte(len(cnameRData)))
	data = append(data, cnameRData...)

	packet := []byte{0x43, 0x21, 0x81, 0x80, 0x00, 0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00}
	packet = append(packet, data...)

	u := New()
	if err := u.Parse(packet); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	firstAnswers, err := u.Answers()
	if err != nil {
		t.Fatalf("first Answers: %v", err)
	}

	out, err := pdu.SerializeAll(u)
	if err != nil {
		t.Fatalf("SerializeAll: %v", err)
	}
	if !bytes.Equal(out, packet) {
		t.Fatalf("compressed response did not survive byte-exact:\n got  %x\n want %x", out, packet)
	}

	reparsed := New()
	if err := reparsed.Parse(out); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	answers, err := reparsed.Answers()
	if err != nil {
		t.Fatalf("Answers: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("len(answers) = %d, want 2", len(answers))
	}
	if answers[0].Name != "www.example.com" || answers[0].Type != TypeA {
		t.Fatalf("answer 0 = %+v", answers[0])
	}
	ip, err := answers[0].IPv4()
	if err != nil || ip.String() != "93.184.216.34" {
		t.Fatalf("answer 0 address = %v, %v", ip, err)
	}
	if answers[1].Name != "www.example.com" || answers[1].Type != TypeCNAME {
		t.Fatalf("answer 1 = %+v", answers[1])
	}
	cname, err := answers[1].DomainName()
	if err != nil || cname != "cname-target.example.com" {
		t.Fatalf("answer 1 cname = %q, %v", cname, err)
	}
	if diff := deep.Equal(firstAnswers, answers); diff != nil {
		t.Fatalf("answers changed across reserialization: %v", diff)
	}
}

func TestNameLengthBoundEnforced(t *testing.T) {
	// Four 63-byte labels decode to 256 bytes with dots, one over the cap.
	var data []byte
	for i := 0; i < 4; i++ {
		data = append(data, 63)
		for j := 0; j < 63; j++ {
			data = append(data, 'a')
		}
	}
	data = append(data, 0)

	if _, _, err := decodeName(data, 0); !errors.Is(err, pdu.MalformedPacket) {
		t.Fatalf("expected MalformedPacket for a 256-byte name, got %v", err)
	}
}

func TestPointerCycleDetected(t *testing.T) {
	// A pointer to packet offset 12 is records index 0 — itself.
	data := []byte{0xC0, 0x0C}
	if _, _, err := decodeName(data, 0); !errors.Is(err, pdu.MalformedPacket) {
		t.Fatalf("expected MalformedPacket for a pointer cycle, got %v", err)
	}
}

func TestPointerOutOfRangeRejected(t *testing.T) {
	// Pointer below the 12-byte header boundary.
	low := []byte{0xC0, 0x04}
	if _, _, err := decodeName(low, 0); !errors.Is(err, pdu.MalformedPacket) {
		t.Fatalf("expected MalformedPacket for a pointer into the header, got %v", err)
	}
	// Pointer past the end of records data.
	high := []byte{0xC0, 0x40}
	if _, _, err := decodeName(high, 0); !errors.Is(err, pdu.MalformedPacket) {
		t.Fatalf("expected MalformedPacket for a past-end pointer, got %v", err)
	}
}

func TestMatchesResponseRawIDEquality(t *testing.T) {
	u := New()
	u.ID = 0x55AA
	if u.MatchesResponse([]byte{0x55, 0xAA, 0x81, 0x80}) != true {
		t.Fatalf("expected ID match")
	}
	if u.MatchesResponse([]byte{0xAA, 0x55, 0x81, 0x80}) {
		t.Fatalf("expected mismatch on byte-swapped ID")
	}
}
