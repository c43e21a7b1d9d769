package service

import (
	"alcyxob/workout-playlist/internal/domain"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"strconv"
)

// dayRand returns the random stream for one plan day. The same workout,
// week, day and archetype always produce the same draws.
func dayRand(workoutID string, week, day int, archetype domain.Archetype) *rand.Rand {
	key := workoutID + "|" + strconv.Itoa(week) + "|" + strconv.Itoa(day) + "|" + string(archetype)
	sum := sha256.Sum256([]byte(key))
	seed := binary.BigEndian.Uint64(sum[:8])
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
