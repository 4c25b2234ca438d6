// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, округление весов, форматирование очков.
package common

import (
	"fmt"
	"math"
)

// plural выбирает форму слова для числа n по правилам русского языка:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func plural(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizePoints возвращает правильную форму слова «очко» для числа n.
//
// Примеры:
//
//	PluralizePoints(1)  → "очко"
//	PluralizePoints(3)  → "очка"
//	PluralizePoints(11) → "очков"
func PluralizePoints(n int64) string {
	return plural(n, "очко", "очка", "очков")
}

// PluralizeCatches возвращает правильную форму слова «улов».
func PluralizeCatches(n int64) string {
	return plural(n, "улов", "улова", "уловов")
}

// FormatPoints создаёт строку вида "+100 очков".
func FormatPoints(points int64) string {
	if points >= 0 {
		return fmt.Sprintf("+%d %s", points, PluralizePoints(points))
	}
	return fmt.Sprintf("%d %s", points, PluralizePoints(points))
}

// Round2 округляет до двух знаков после запятой (половинки — от нуля).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp ограничивает v отрезком [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
