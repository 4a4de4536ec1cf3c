package metadata

import "github.com/nextlevelbuilder/vdsgateway/internal/model"

// demoCatalog is the synthesized fallback catalog served when neither the
// external index nor a local mount scan yields anything. Clearly a demo:
// survey ids are prefixed accordingly and file paths use a demo:// scheme.
func demoCatalog() []model.Survey {
	return []model.Survey{
		{
			ID:             "demo_gulf_mexico_2023",
			Name:           "Gulf of Mexico 3D Survey 2023",
			Path:           "demo://gulf_mexico_2023.vds",
			Region:         "Gulf of Mexico",
			AcquisitionAt:  "2023-06-15",
			Dimensionality: 3,
			DataType:       "3D Seismic",
			ChannelCount:   1,
			Sample:         model.Axis{Name: model.AxisSample, Unit: "ms", CoordMin: 0, CoordMax: 4000, SampleCount: 1001},
			Crossline:      model.Axis{Name: model.AxisCrossline, Unit: "line", CoordMin: 500, CoordMax: 1800, SampleCount: 1301},
			Inline:         model.Axis{Name: model.AxisInline, Unit: "line", CoordMin: 1000, CoordMax: 2500, SampleCount: 1501},
		},
		{
			ID:             "demo_north_sea_2024",
			Name:           "North Sea Prospect 4D Monitor",
			Path:           "demo://north_sea_2024.vds",
			Region:         "North Sea",
			AcquisitionAt:  "2024-03-20",
			Dimensionality: 4,
			DataType:       "4D Seismic",
			ChannelCount:   1,
			Sample:         model.Axis{Name: model.AxisSample, Unit: "ms", CoordMin: 0, CoordMax: 3500, SampleCount: 1751},
			Crossline:      model.Axis{Name: model.AxisCrossline, Unit: "line", CoordMin: 400, CoordMax: 1500, SampleCount: 1101},
			Inline:         model.Axis{Name: model.AxisInline, Unit: "line", CoordMin: 800, CoordMax: 1900, SampleCount: 1101},
		},
		{
			ID:             "demo_permian_basin_2022",
			Name:           "Permian Basin Survey 2022",
			Path:           "demo://permian_basin_2022.vds",
			Region:         "Permian Basin",
			AcquisitionAt:  "2022-11-10",
			Dimensionality: 3,
			DataType:       "3D Seismic",
			ChannelCount:   1,
			Sample:         model.Axis{Name: model.AxisSample, Unit: "ms", CoordMin: 0, CoordMax: 5000, SampleCount: 1251},
			Crossline:      model.Axis{Name: model.AxisCrossline, Unit: "line", CoordMin: 600, CoordMax: 2200, SampleCount: 1601},
			Inline:         model.Axis{Name: model.AxisInline, Unit: "line", CoordMin: 1200, CoordMax: 3000, SampleCount: 1801},
		},
	}
}
