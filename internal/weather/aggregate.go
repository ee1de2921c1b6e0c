package weather

// AssembleSnapshot turns per-point results into a snapshot in input order.
// readings[i] must be the result for points[i]. Duplicate labels collapse onto
// the slot of their first occurrence, holding the value of the last one.
func AssembleSnapshot(points []GeoPoint, readings []WeatherReading) WeatherSnapshot {
	snapshot := make(WeatherSnapshot, 0, len(readings))
	slot := make(map[string]int, len(readings))

	for i, r := range readings {
		if r.Label == "" && i < len(points) {
			r.Label = points[i].Label()
		}
		if idx, seen := slot[r.Label]; seen {
			snapshot[idx] = r
			continue
		}
		slot[r.Label] = len(snapshot)
		snapshot = append(snapshot, r)
	}

	return snapshot
}
