// Package fishing — серверная логика заброса: выбор вида, вес улова,
// сравнение с личным рекордом и сохранение.
// Вся случайность — только на сервере, клиент на исход не влияет.
package fishing

import "math/rand/v2"

// Rand — источник случайности для выбора вида и веса.
type Rand interface {
	Float64() float64
	NormFloat64() float64
}

// globalRand использует общий генератор math/rand/v2 (ChaCha8, потокобезопасный).
type globalRand struct{}

func (globalRand) Float64() float64     { return rand.Float64() }
func (globalRand) NormFloat64() float64 { return rand.NormFloat64() }

// DefaultRand — генератор для продакшена.
var DefaultRand Rand = globalRand{}
