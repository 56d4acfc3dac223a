package services

import "github.com/google/uuid"

// pointNamespace is the RFC 4122 DNS namespace. Point ids are derived in it
// so that existing collections keep their ids.
var pointNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// PointID returns the deterministic point identity for a chunk of patientID
// with the given internal id: a version 5 UUID over "{patientID}_{internalID}".
//
// An empty internalID yields a random id, so such chunks are never
// deduplicated across passes.
func PointID(patientID, internalID string) string {
	if internalID == "" {
		return uuid.New().String()
	}
	return uuid.NewSHA1(pointNamespace, []byte(patientID+"_"+internalID)).String()
}
