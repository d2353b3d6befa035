package entity

import (
	"time"

	"github.com/backyonatan-alt/fiftyone/internal/model"
)

// Airfield is the ICAO code of the only supported aviation location.
const Airfield = "LSZI"

const aviationKeyPrefix = "aviation_lszi_"

func weatherOf(s *model.Snapshot) *model.Weather {
	if s.Aviation.Weather == nil {
		return &model.Weather{}
	}
	return s.Aviation.Weather
}

func runwayOf(s *model.Snapshot) *model.Runway {
	if s.Aviation.Runway == nil {
		return &model.Runway{}
	}
	return s.Aviation.Runway
}

// weatherSensor builds a description whose value is one weather field.
func weatherSensor(key, name, unit, deviceClass, icon string, field func(*model.Weather) *float64) SensorDescription {
	return SensorDescription{
		Key:         aviationKeyPrefix + key,
		Name:        Airfield + " " + name,
		Unit:        unit,
		DeviceClass: deviceClass,
		StateClass:  stateClassMeasurement,
		Icon:        icon,
		Value: func(s *model.Snapshot) any {
			return floatValue(field(weatherOf(s)))
		},
	}
}

// AviationSensors returns every weather and runway description for LSZI.
func AviationSensors() []SensorDescription {
	temperature := weatherSensor("oat", "Temperature", "°C", "temperature", "",
		func(w *model.Weather) *float64 { return w.OAT })
	temperature.Attributes = func(s *model.Snapshot) map[string]any {
		w := weatherOf(s)
		attrs := map[string]any{}
		if w.Dew != nil {
			attrs["dewpoint"] = *w.Dew
		}
		if w.Spread != nil {
			attrs["spread"] = *w.Spread
		}
		if w.Timestamp != nil && *w.Timestamp > 0 {
			attrs["data_timestamp"] = time.Unix(int64(*w.Timestamp), 0).UTC().Format(time.RFC3339)
		}
		if w.Age != nil {
			attrs["data_age_seconds"] = *w.Age
		}
		return attrs
	}

	windSpeed := weatherSensor("wind_speed", "Wind Speed", "kn", "wind_speed", "mdi:weather-windy",
		func(w *model.Weather) *float64 { return w.WindKt })
	windSpeed.Attributes = func(s *model.Snapshot) map[string]any {
		w := weatherOf(s)
		attrs := map[string]any{}
		if w.WindKmh != nil {
			attrs["wind_kmh"] = *w.WindKmh
		}
		if w.GustKt != nil {
			attrs["gust_kt"] = *w.GustKt
		}
		if w.GustKmh != nil {
			attrs["gust_kmh"] = *w.GustKmh
		}
		return attrs
	}

	pressureAltitude := weatherSensor("pa", "Pressure Altitude", "ft", "", "mdi:altimeter",
		func(w *model.Weather) *float64 { return w.PA })
	pressureAltitude.Attributes = func(s *model.Snapshot) map[string]any {
		w := weatherOf(s)
		return map[string]any{
			"field_elevation": floatValue(w.Alt),
			"valid":           boolValue(w.Valid),
		}
	}

	return []SensorDescription{
		temperature,
		weatherSensor("humidity", "Humidity", "%", "humidity", "",
			func(w *model.Weather) *float64 { return w.Humidity }),
		weatherSensor("pressure", "Pressure", "hPa", "atmospheric_pressure", "",
			func(w *model.Weather) *float64 { return w.HPa }),
		windSpeed,
		weatherSensor("wind_dir", "Wind Direction", "°", "", "mdi:compass",
			func(w *model.Weather) *float64 { return w.WindDir }),
		weatherSensor("cloud_base", "Cloud Base", "ft", "", "mdi:cloud",
			func(w *model.Weather) *float64 { return w.CloudBase }),
		weatherSensor("da", "Density Altitude", "ft", "", "mdi:altimeter",
			func(w *model.Weather) *float64 { return w.DA }),
		pressureAltitude,
		weatherSensor("rain_rate", "Rain Rate", "mm/h", "precipitation_intensity", "mdi:weather-rainy",
			func(w *model.Weather) *float64 { return w.RainRate }),
		runwayStatusSensor(),
		{
			Key:  aviationKeyPrefix + "runway_text",
			Name: Airfield + " Runway Text",
			Icon: "mdi:runway",
			Value: func(s *model.Snapshot) any {
				return stringValue(runwayOf(s).Text)
			},
		},
		{
			Key:  aviationKeyPrefix + "runway_additional",
			Name: Airfield + " Runway Additional",
			Icon: "mdi:information-outline",
			Value: func(s *model.Snapshot) any {
				return stringValue(runwayOf(s).Additional)
			},
		},
	}
}

func runwayStatusSensor() SensorDescription {
	return SensorDescription{
		Key:  aviationKeyPrefix + "runway",
		Name: Airfield + " Runway Status",
		Icon: "mdi:runway",
		Value: func(s *model.Snapshot) any {
			if status, ok := runwayOf(s).DisplayStatus(); ok {
				return status
			}
			return nil
		},
		Attributes: func(s *model.Snapshot) map[string]any {
			r := runwayOf(s)
			return map[string]any{
				"status_code": r.Status.Value(),
				"altitude":    floatValue(r.Altitude),
				"additional":  stringValue(r.Additional),
				"text":        stringValue(r.Text),
			}
		},
	}
}
