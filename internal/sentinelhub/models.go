package sentinelhub

import "time"

// CRS84 identifies EPSG:4326 in Process API bounds.
const CRS84 = "http://www.opengis.net/def/crs/EPSG/0/4326"

// MosaickingMostRecent asks the Process API for the most recent valid scene.
const MosaickingMostRecent = "mostRecent"

// Band positions in the GeoTIFF returned for the NDVI evalscript.
const (
	BandRed = iota
	BandNIR
	BandDataMask
	BandSCL

	BandCount
)

// ndviEvalscript returns red and NIR reflectance plus the data mask and the
// scene classification so clear-sky filtering can happen on our side.
const ndviEvalscript = `//VERSION=3
function setup() {
  return {
    input: [{
      bands: ["B04", "B08", "dataMask", "SCL"],
      units: ["REFLECTANCE", "REFLECTANCE", "DN", "DN"]
    }],
    output: {
      id: "default",
      bands: 4,
      sampleType: SampleType.FLOAT32
    }
  };
}

function evaluatePixel(sample) {
  return [sample.B04, sample.B08, sample.dataMask, sample.SCL];
}
`

// ProcessRequest describes one NDVI band request over a bounding box.
type ProcessRequest struct {
	// BBox is [west, south, east, north] in EPSG:4326.
	BBox   [4]float64
	Width  int
	Height int
	From   time.Time
	To     time.Time
}

// processPayload is the JSON body of POST /api/v1/process.
type processPayload struct {
	Input      processInput  `json:"input"`
	Output     processOutput `json:"output"`
	Evalscript string        `json:"evalscript"`
}

type processInput struct {
	Bounds processBounds `json:"bounds"`
	Data   []dataSource  `json:"data"`
}

type processBounds struct {
	BBox       []float64        `json:"bbox"`
	Properties boundsProperties `json:"properties"`
}

type boundsProperties struct {
	CRS string `json:"crs"`
}

type dataSource struct {
	Type       string     `json:"type"`
	DataFilter dataFilter `json:"dataFilter"`
}

type dataFilter struct {
	TimeRange       timeRange `json:"timeRange"`
	MosaickingOrder string    `json:"mosaickingOrder"`
}

type timeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type processOutput struct {
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Responses []outputResponse `json:"responses"`
}

type outputResponse struct {
	Identifier string       `json:"identifier"`
	Format     outputFormat `json:"format"`
}

type outputFormat struct {
	Type string `json:"type"`
}

func newProcessPayload(collection string, req ProcessRequest) processPayload {
	return processPayload{
		Input: processInput{
			Bounds: processBounds{
				BBox:       req.BBox[:],
				Properties: boundsProperties{CRS: CRS84},
			},
			Data: []dataSource{{
				Type: collection,
				DataFilter: dataFilter{
					TimeRange: timeRange{
						From: req.From.UTC().Format(time.RFC3339),
						To:   req.To.UTC().Format(time.RFC3339),
					},
					MosaickingOrder: MosaickingMostRecent,
				},
			}},
		},
		Output: processOutput{
			Width:  req.Width,
			Height: req.Height,
			Responses: []outputResponse{{
				Identifier: "default",
				Format:     outputFormat{Type: "image/tiff"},
			}},
		},
		Evalscript: ndviEvalscript,
	}
}
