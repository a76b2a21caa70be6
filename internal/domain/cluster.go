package domain

import "sort"

// Cluster is a map-rendering aggregate of nearby records at one zoom level.
// Clusters are ephemeral: recomputed per viewport change, never stored.
type Cluster struct {
	Centroid Geo `json:"centroid"`
	// MemberCount equals len(MemberIDs); kept explicit for the wire format.
	MemberCount int      `json:"member_count"`
	MemberIDs   []string `json:"member_ids"`
	// RepresentativeSeverity is the maximum severity among members, so a
	// cluster's color cannot hide a high-severity member behind low ones.
	RepresentativeSeverity float64 `json:"representative_severity"`

	// screen-space running state, not serialized
	px Point
}

// ClusterOptions tunes the radius clusterer. RadiusByZoom sets the pixel
// radius for specific zoom levels; zooms without an entry inherit the nearest
// configured zoom below them, and DefaultRadiusPx covers zooms below every
// entry. Above DisableAboveZoom every point is its own cluster.
type ClusterOptions struct {
	RadiusByZoom     map[int]float64
	DefaultRadiusPx  float64
	DisableAboveZoom int
}

// RadiusPx resolves the clustering radius for a zoom level.
func (o ClusterOptions) RadiusPx(zoom int) float64 {
	if r, ok := o.RadiusByZoom[zoom]; ok {
		return r
	}
	// Fall back to the nearest configured zoom at or below, so a sparse
	// table still yields a monotone radius curve.
	best := -1
	for z := range o.RadiusByZoom {
		if z <= zoom && z > best {
			best = z
		}
	}
	if best >= 0 {
		return o.RadiusByZoom[best]
	}
	return o.DefaultRadiusPx
}

// ClusterRecords groups records into clusters for one viewport and zoom.
//
// The algorithm is a single greedy pass: records are visited in ID order (so
// output is deterministic for a fixed input set), each record joins the
// nearest existing cluster whose centroid is within the pixel radius, and
// starts a new cluster otherwise. Centroids are running means updated
// incrementally, keeping the whole pass O(n·k) with no retained state between
// calls.
func ClusterRecords(records []HazardRecord, zoom int, bounds Bounds, opts ClusterOptions) []Cluster {
	visible := make([]HazardRecord, 0, len(records))
	for _, r := range records {
		if bounds.Contains(r.Position) {
			visible = append(visible, r)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].ID < visible[j].ID })

	if zoom > opts.DisableAboveZoom {
		out := make([]Cluster, len(visible))
		for i, r := range visible {
			out[i] = Cluster{
				Centroid:               r.Position,
				MemberCount:            1,
				MemberIDs:              []string{r.ID},
				RepresentativeSeverity: r.Severity,
			}
		}
		return out
	}

	radius := opts.RadiusPx(zoom)
	var clusters []Cluster

	for _, r := range visible {
		p := Project(r.Position, zoom)

		nearest := -1
		nearestDist := radius
		for i := range clusters {
			if d := clusters[i].px.Dist(p); d <= nearestDist {
				nearest = i
				nearestDist = d
			}
		}

		if nearest < 0 {
			clusters = append(clusters, Cluster{
				Centroid:               r.Position,
				MemberCount:            1,
				MemberIDs:              []string{r.ID},
				RepresentativeSeverity: r.Severity,
				px:                     p,
			})
			continue
		}

		c := &clusters[nearest]
		n := float64(c.MemberCount)
		c.Centroid.Lat = (c.Centroid.Lat*n + r.Position.Lat) / (n + 1)
		c.Centroid.Lon = (c.Centroid.Lon*n + r.Position.Lon) / (n + 1)
		c.px.X = (c.px.X*n + p.X) / (n + 1)
		c.px.Y = (c.px.Y*n + p.Y) / (n + 1)
		c.MemberCount++
		c.MemberIDs = append(c.MemberIDs, r.ID)
		if r.Severity > c.RepresentativeSeverity {
			c.RepresentativeSeverity = r.Severity
		}
	}
	return clusters
}
