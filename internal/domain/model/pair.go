package model

import "strconv"

// PairKey identifies an unordered pair of users. UserA sorts before UserB.
type PairKey struct {
	UserA UserID
	UserB UserID
}

func (k PairKey) String() string {
	a := string(k.UserA)
	return strconv.Itoa(len(a)) + ":" + a + "|" + string(k.UserB)
}

func (k PairKey) Has(id UserID) bool {
	return id == k.UserA || id == k.UserB
}

// Other returns the counterpart of id within the pair.
func (k PairKey) Other(id UserID) UserID {
	if id == k.UserA {
		return k.UserB
	}
	return k.UserA
}
