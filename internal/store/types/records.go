package types

type ExtraDirectory struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	LongName         string           `json:"longName"`
	DestDir          string           `json:"destDir"`
	CruiseOrLowering CruiseOrLowering `json:"cruiseOrLowering"`
	Enable           bool             `json:"enable"`
	Required         bool             `json:"required"`
}

// ShipToShoreTransfer selects what the ship-to-shore warehouse transfer
// sends, in priority order (1 = highest).
type ShipToShoreTransfer struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	LongName         string `json:"longName"`
	Priority         int    `json:"priority"`
	CollectionSystem int64  `json:"collectionSystem"`
	ExtraDirectory   int64  `json:"extraDirectory"`
	IncludeFilter    string `json:"includeFilter"`
	Enable           bool   `json:"enable"`
	Required         bool   `json:"required"`
}

type Link struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enable  bool   `json:"enable"`
	Private bool   `json:"private"`
}
