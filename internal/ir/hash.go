package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainEntity is the domain prefix for entity content hashes.
// Version suffix enables future algorithm migration.
const DomainEntity = "denorm/entity/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EntityHash computes the content hash of a stored entity.
// The hash covers partition, id and canonical body, so equal bodies under
// different ids hash differently. Used by the snapshot store to skip
// rewriting unchanged rows.
func EntityHash(partition, id string, entity IRValue) (string, error) {
	obj := IRObject{
		"partition": IRString(partition),
		"id":        IRString(id),
		"entity":    entity,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EntityHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainEntity, canonical), nil
}
