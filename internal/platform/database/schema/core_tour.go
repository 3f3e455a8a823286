package schema

// CoreTourTable represents the 'core.tour' table
type CoreTourTable struct {
	Table            string
	ID               string
	Name             string
	Slug             string
	Duration         string
	MaxGroupSize     string
	Difficulty       string
	RatingsAverage   string
	RatingsCount     string
	Price            string
	PriceDiscount    string
	Summary          string
	Description      string
	ImageCover       string
	Images           string
	StartDates       string
	SecretTour       string
	Guides           string
	StartLatitude    string
	StartLongitude   string
	StartAddress     string
	StartDescription string
	CreatedAt        string
	UpdatedAt        string
	Version          string
}

// CoreTour is the schema definition for core.tour
var CoreTour = CoreTourTable{
	Table:            "core.tour",
	ID:               "id",
	Name:             "name",
	Slug:             "slug",
	Duration:         "duration",
	MaxGroupSize:     "maxgroupsize",
	Difficulty:       "difficulty",
	RatingsAverage:   "ratingsaverage",
	RatingsCount:     "ratingscount",
	Price:            "price",
	PriceDiscount:    "pricediscount",
	Summary:          "summary",
	Description:      "description",
	ImageCover:       "imagecover",
	Images:           "images",
	StartDates:       "startdates",
	SecretTour:       "secrettour",
	Guides:           "guides",
	StartLatitude:    "startlatitude",
	StartLongitude:   "startlongitude",
	StartAddress:     "startaddress",
	StartDescription: "startdescription",
	CreatedAt:        "createdat",
	UpdatedAt:        "updatedat",
	Version:          "version",
}
