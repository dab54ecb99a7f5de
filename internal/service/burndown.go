package service

import (
	"math"
	"time"

	"sprintboard/internal/model"
)

// BuildBurndown строит дневную серию burndown для спринта.
// Идеальная линия линейно интерполируется от total до нуля по дням спринта.
// Фактическая линия экстраполируется средней скоростью сжигания от total
// до текущего остатка и обрывается после сегодняшнего дня.
// При отсутствии или перепутанных датах возвращается пустая серия
func BuildBurndown(total, done int, start, end *time.Time, today time.Time) []model.BurndownPoint {
	if start == nil || end == nil {
		return []model.BurndownPoint{}
	}
	s := start.Truncate(24 * time.Hour)
	e := end.Truncate(24 * time.Hour)
	if e.Before(s) {
		return []model.BurndownPoint{}
	}
	days := int(math.Ceil(e.Sub(s).Hours() / 24))
	remaining := total - done
	if remaining < 0 {
		remaining = 0
	}
	// число прошедших дней ограничено рамками спринта
	elapsed := int(today.Truncate(24 * time.Hour).Sub(s).Hours() / 24)
	if elapsed > days {
		elapsed = days
	}
	series := make([]model.BurndownPoint, 0, days+1)
	for i := 0; i <= days; i++ {
		p := model.BurndownPoint{
			Day:   s.AddDate(0, 0, i).Format("2006-01-02"),
			Ideal: idealRemaining(total, i, days),
		}
		if elapsed >= 0 && i <= elapsed {
			// средняя скорость: от total к текущему остатку за прошедшие дни
			var actual float64
			switch {
			case i == elapsed:
				actual = float64(remaining)
			case elapsed > 0:
				rate := float64(total-remaining) / float64(elapsed)
				actual = float64(total) - rate*float64(i)
			default:
				actual = float64(total)
			}
			if actual < 0 {
				actual = 0
			}
			p.Actual = &actual
		}
		series = append(series, p)
	}
	return series
}

// idealRemaining возвращает идеальный остаток на день i из days, с нижней границей 0
func idealRemaining(total, i, days int) float64 {
	if days == 0 {
		if i == 0 {
			return float64(total)
		}
		return 0
	}
	v := float64(total) * float64(days-i) / float64(days)
	if v < 0 {
		return 0
	}
	return v
}
