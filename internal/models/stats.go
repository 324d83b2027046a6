package models

// BasicStats holds the per-stack morphometrics
type BasicStats struct {
	Count            int     `yaml:"count"`
	AreaMean         float64 `yaml:"area_mean"`
	AreaStd          float64 `yaml:"area_std"`
	Unit             string  `yaml:"unit"`
	EccentricityMean float64 `yaml:"eccentricity_mean"`
	EccentricityStd  float64 `yaml:"eccentricity_std"`
}

// SpatialStats holds nearest-neighbour and density statistics for one stack.
// All fields other than Density and the unit labels stay zero when fewer than
// two objects exist.
type SpatialStats struct {
	// Count is the number of objects with a centroid
	Count int `yaml:"count"`

	// AvgNND and StdNND are the mean and population standard deviation of
	// nearest-neighbour distance, in DistUnit
	AvgNND float64 `yaml:"avg_nnd"`
	StdNND float64 `yaml:"std_nnd"`

	// Density is objects per normalized image area, in DensityUnit
	Density float64 `yaml:"density"`

	// AvgNeighborCount and StdNeighborCount describe how many other objects
	// lie within the fixed pixel search radius
	AvgNeighborCount float64 `yaml:"avg_neighbor_count"`
	StdNeighborCount float64 `yaml:"std_neighbor_count"`

	DistUnit    string `yaml:"dist_unit"`
	DensityUnit string `yaml:"density_unit"`
}

// RelationalStats summarizes matched reference/dependent area ratios
type RelationalStats struct {
	MatchedPairs int     `yaml:"matched_pairs"`
	AvgRatio     float64 `yaml:"avg_ratio"`
	StdRatio     float64 `yaml:"std_ratio"`
}

// ComprehensiveStats is the combined result of one analysis pass. Sections
// are nil when the corresponding input was not supplied.
type ComprehensiveStats struct {
	CellStats       *BasicStats      `yaml:"cell_stats,omitempty"`
	NucleiStats     *BasicStats      `yaml:"nuclei_stats,omitempty"`
	SpatialStats    *SpatialStats    `yaml:"spatial_stats,omitempty"`
	RelationalStats *RelationalStats `yaml:"relational_stats,omitempty"`
}
