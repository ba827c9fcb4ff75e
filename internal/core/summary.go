package core

import "sort"

// MenuTotal is a per-menu aggregate across platform entries.
type MenuTotal struct {
	MenuName string `json:"menuName"`
	Count    int64  `json:"count"`
	Amount   Money  `json:"amount"`
}

// SummarizeMenus folds every menu line across all entries into one row
// per menu name, ordered by summed amount descending. Ties keep the
// order in which the menu name was first seen.
func SummarizeMenus(entries []PlatformEntry) []MenuTotal {
	index := make(map[string]int)
	var rows []MenuTotal
	for _, e := range entries {
		for _, s := range e.MenuSales {
			i, ok := index[s.MenuName]
			if !ok {
				i = len(rows)
				index[s.MenuName] = i
				rows = append(rows, MenuTotal{MenuName: s.MenuName})
			}
			rows[i].Count += s.Count
			rows[i].Amount = rows[i].Amount.Add(s.Amount)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Amount.Won > rows[j].Amount.Won
	})
	return rows
}
