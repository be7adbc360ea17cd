package forecast

import (
	"errors"
	"fmt"
)

// Signals TMI classification tables whose min/max bounds are inverted.
var ErrBadTMIParams = errors.New("forecast: invalid tmi parameters")

// HolidayParams are the calculator-level switches for which holiday
// kinds count as site closure time. Site-level switches are ANDed in.
type HolidayParams struct {
	ConsiderClosureHolidays bool `yaml:"consider_closure_holidays"`
	ConsiderWorkingHolidays bool `yaml:"consider_working_holidays"`
	ConsiderWeekendHolidays bool `yaml:"consider_weekends_holidays"`
}

// DTParams configure the dispatch time estimate.
type DTParams struct {
	Holidays   HolidayParams `yaml:"holidays_params"`
	Confidence float64       `yaml:"confidence"`
}

// AlphaParams select and configure the blend-weight strategy.
type AlphaParams struct {
	ConstAlphaValue float64   `yaml:"const_alpha_value"`
	ExpTTWeight     float64   `yaml:"exp_tt_weight"`
	AlphaType       AlphaType `yaml:"alpha_type"`
}

// TMISpeedParams are the per-mode speed ranges (km/h) used to classify
// a leg's transportation mode.
type TMISpeedParams struct {
	AirMinSpeedKmh  float64 `yaml:"air_min_speed_km_h"`
	AirMaxSpeedKmh  float64 `yaml:"air_max_speed_km_h"`
	SeaMinSpeedKmh  float64 `yaml:"sea_min_speed_km_h"`
	SeaMaxSpeedKmh  float64 `yaml:"sea_max_speed_km_h"`
	RailMinSpeedKmh float64 `yaml:"rail_min_speed_km_h"`
	RailMaxSpeedKmh float64 `yaml:"rail_max_speed_km_h"`
	RoadMinSpeedKmh float64 `yaml:"road_min_speed_km_h"`
	RoadMaxSpeedKmh float64 `yaml:"road_max_speed_km_h"`
}

// Validate checks 0 <= min <= max for every mode.
func (p TMISpeedParams) Validate() error {
	ranges := []struct {
		mode     string
		min, max float64
	}{
		{"air", p.AirMinSpeedKmh, p.AirMaxSpeedKmh},
		{"sea", p.SeaMinSpeedKmh, p.SeaMaxSpeedKmh},
		{"rail", p.RailMinSpeedKmh, p.RailMaxSpeedKmh},
		{"road", p.RoadMinSpeedKmh, p.RoadMaxSpeedKmh},
	}
	for _, r := range ranges {
		if r.min < 0 || r.min > r.max {
			return fmt.Errorf("%w: %s speed range [%.2f, %.2f]", ErrBadTMIParams, r.mode, r.min, r.max)
		}
	}
	return nil
}

// TMIDistanceParams are the per-mode distance ranges (km) used to
// classify a leg's transportation mode.
type TMIDistanceParams struct {
	AirMinDistanceKm  float64 `yaml:"air_min_distance_km"`
	AirMaxDistanceKm  float64 `yaml:"air_max_distance_km"`
	SeaMinDistanceKm  float64 `yaml:"sea_min_distance_km"`
	SeaMaxDistanceKm  float64 `yaml:"sea_max_distance_km"`
	RailMinDistanceKm float64 `yaml:"rail_min_distance_km"`
	RailMaxDistanceKm float64 `yaml:"rail_max_distance_km"`
	RoadMinDistanceKm float64 `yaml:"road_min_distance_km"`
	RoadMaxDistanceKm float64 `yaml:"road_max_distance_km"`
}

// Validate checks 0 <= min <= max for every mode.
func (p TMIDistanceParams) Validate() error {
	ranges := []struct {
		mode     string
		min, max float64
	}{
		{"air", p.AirMinDistanceKm, p.AirMaxDistanceKm},
		{"sea", p.SeaMinDistanceKm, p.SeaMaxDistanceKm},
		{"rail", p.RailMinDistanceKm, p.RailMaxDistanceKm},
		{"road", p.RoadMinDistanceKm, p.RoadMaxDistanceKm},
	}
	for _, r := range ranges {
		if r.min < 0 || r.min > r.max {
			return fmt.Errorf("%w: %s distance range [%.2f, %.2f]", ErrBadTMIParams, r.mode, r.min, r.max)
		}
	}
	return nil
}

// TMIParams configure the traffic meta-index computation.
type TMIParams struct {
	Speed               TMISpeedParams    `yaml:"speed_parameters"`
	Distance            TMIDistanceParams `yaml:"distance_parameters"`
	UseTrafficService   bool              `yaml:"use_traffic_service"`
	TrafficMaxTimedelta float64           `yaml:"traffic_max_timedelta"`
}

// WMIParams configure the weather meta-index computation.
type WMIParams struct {
	UseWeatherService   bool    `yaml:"use_weather_service"`
	WeatherMaxTimedelta float64 `yaml:"weather_max_timedelta"`
	StepDistanceKm      float64 `yaml:"step_distance_km"`
	MaxPoints           int     `yaml:"max_points"`
}

// RTEstimatorParams configure the route-time regression model.
type RTEstimatorParams struct {
	ModelMAPE float64 `yaml:"model_mape"`
	UseModel  bool    `yaml:"use_model"`
}

// PTParams configure the path time estimate.
type PTParams struct {
	RTEstimator           RTEstimatorParams `yaml:"rte_estimator_params"`
	TMI                   TMIParams         `yaml:"tmi_params"`
	WMI                   WMIParams         `yaml:"wmi_params"`
	PathMinProbability    float64           `yaml:"path_min_probability"`
	MaxPaths              int               `yaml:"max_paths"`
	ExtDataMinProbability float64           `yaml:"ext_data_min_probability"`
	Confidence            float64           `yaml:"confidence"`
}

// TTParams configure the transit time estimate.
type TTParams struct {
	Confidence float64 `yaml:"confidence"`
}

// TFSTParams configure the blended shipment forecast.
type TFSTParams struct {
	Alpha     AlphaParams `yaml:"alpha_params"`
	PT        PTParams    `yaml:"pt_params"`
	TT        TTParams    `yaml:"tt_params"`
	Tolerance float64     `yaml:"tolerance"`
}

// TimeDeviationParams configure the deviation-versus-threshold report.
type TimeDeviationParams struct {
	DTConfidence float64 `yaml:"dt_time_deviation_confidence"`
	STConfidence float64 `yaml:"st_time_deviation_confidence"`
}

// Params is the full estimation parameter set.
type Params struct {
	DT              DTParams            `yaml:"dt_params"`
	TFST            TFSTParams          `yaml:"tfst_params"`
	TimeDeviation   TimeDeviationParams `yaml:"time_deviation_params"`
	Parallelization int                 `yaml:"parallelization"`
}

// Validate checks the nested TMI classification tables.
func (p Params) Validate() error {
	if err := p.TFST.PT.TMI.Speed.Validate(); err != nil {
		return err
	}
	return p.TFST.PT.TMI.Distance.Validate()
}
