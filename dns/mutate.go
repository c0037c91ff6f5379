package dns

import "github.com/m-lab/netdissect/metrics"

// AddQuestion appends a question entry at the end of the question
// section (immediately before the answer section), incrementing QDCount
// and shifting every later section and pointer accordingly.
func (u *Unit) AddQuestion(name string, qtype, qclass uint16) error {
	encoded, err := encodeName(name)
	if err != nil {
		return err
	}
	entry := append(encoded, byte(qtype>>8), byte(qtype), byte(qclass>>8), byte(qclass))
	threshold := u.AnswersIdx
	u.insert(threshold, entry, &u.AnswersIdx, &u.AuthorityIdx, &u.AdditionalIdx)
	u.QDCount++
	return u.rewritePointers(threshold, len(entry))
}

// AddAnswer appends a resource record at the end of the answer section.
func (u *Unit) AddAnswer(name string, rtype, rclass uint16, ttl uint32, rdata []byte) error {
	entry, err := encodeRecord(name, rtype, rclass, ttl, rdata)
	if err != nil {
		return err
	}
	threshold := u.AuthorityIdx
	u.insert(threshold, entry, &u.AuthorityIdx, &u.AdditionalIdx)
	u.ANCount++
	return u.rewritePointers(threshold, len(entry))
}

// AddAuthority appends a resource record at the end of the authority
// section.
func (u *Unit) AddAuthority(name string, rtype, rclass uint16, ttl uint32, rdata []byte) error {
	entry, err := encodeRecord(name, rtype, rclass, ttl, rdata)
	if err != nil {
		return err
	}
	threshold := u.AdditionalIdx
	u.insert(threshold, entry, &u.AdditionalIdx)
	u.NSCount++
	return u.rewritePointers(threshold, len(entry))
}

// AddAdditional appends a resource record at the end of the additional
// section (the end of RecordsData).
func (u *Unit) AddAdditional(name string, rtype, rclass uint16, ttl uint32, rdata []byte) error {
	entry, err := encodeRecord(name, rtype, rclass, ttl, rdata)
	if err != nil {
		return err
	}
	threshold := len(u.RecordsData)
	u.insert(threshold, entry)
	u.ARCount++
	return u.rewritePointers(threshold, len(entry))
}

func encodeRecord(name string, rtype, rclass uint16, ttl uint32, rdata []byte) ([]byte, error) {
	encodedName, err := encodeName(name)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(encodedName)+10+len(rdata))
	out = append(out, encodedName...)
	out = append(out, byte(rtype>>8), byte(rtype), byte(rclass>>8), byte(rclass))
	out = append(out, byte(ttl>>24), byte(ttl>>16), byte(ttl>>8), byte(ttl))
	out = append(out, byte(len(rdata)>>8), byte(len(rdata)))
	out = append(out, rdata...)
	return out, nil
}

// insert splices entry into RecordsData at byte offset threshold and
// advances every marker in markers by len(entry). Callers pass only the
// markers for sections *after* the one being inserted into — the
// insertion's own section-start marker must not move, since the new
// entry extends that section rather than displacing its start. It does
// not touch any compression pointer; rewritePointers does that
// separately once RecordsData reflects the new layout.
func (u *Unit) insert(threshold int, entry []byte, markers ...*int) {
	shift := len(entry)
	metrics.DNSSectionShiftBytes.Observe(float64(shift))
	newData := make([]byte, 0, len(u.RecordsData)+shift)
	newData = append(newData, u.RecordsData[:threshold]...)
	newData = append(newData, entry...)
	newData = append(newData, u.RecordsData[threshold:]...)
	for _, m := range markers {
		*m += shift
	}
	u.RecordsData = newData
}

// rewritePointers walks the full (now-spliced) RecordsData and adjusts
// every compression pointer whose target strictly exceeds threshold by
// shift, in place. Pointers targeting below threshold are untouched;
// freshly inserted records never contain pointers, since encodeName
// never emits one.
func (u *Unit) rewritePointers(threshold, shift int) error {
	_, _, _, err := walkSections(u.RecordsData, int(u.QDCount), int(u.ANCount), int(u.NSCount), int(u.ARCount), true, threshold, shift)
	return err
}
