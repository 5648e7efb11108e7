package semantic

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// IntentVectorDim is the fixed length of intent embeddings.
const IntentVectorDim = 128

// IntentVector computes a deterministic fixed-length embedding of the intent
// text. Tokens are hash-folded into the vector and the result is
// L2-normalized; the same intent always yields the same vector. This is a
// local stand-in for a backend embedding model: it preserves the contract
// (fixed length, unit norm, determinism) without an extra external call per
// generation.
func IntentVector(intent string) []float64 {
	vector := make([]float64, IntentVectorDim)
	tokens := strings.Fields(strings.ToLower(intent))
	if len(tokens) == 0 {
		return vector
	}

	for pos, token := range tokens {
		sum := sha256.Sum256([]byte(token))
		// Fold the digest into four dimensions per token, position-damped so
		// early tokens weigh slightly more.
		damp := 1.0 / (1.0 + 0.1*float64(pos))
		for i := 0; i < 4; i++ {
			idx := binary.BigEndian.Uint32(sum[i*8:]) % IntentVectorDim
			mag := float64(binary.BigEndian.Uint32(sum[i*8+4:])) / float64(math.MaxUint32)
			vector[idx] += (mag*2 - 1) * damp
		}
	}

	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vector {
			vector[i] /= norm
		}
	}
	return vector
}

// CosineSimilarity returns the cosine similarity of two vectors of equal
// length, or 0 when either has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
