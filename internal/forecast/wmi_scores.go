package forecast

// Severity scores for the weather condition codes reported by the
// weather service, on a [0, 1] scale.
var weatherScores = map[string]float64{
	"type_43": 0.00, // Clear
	"type_42": 0.00, // Partially Cloudy
	"type_41": 0.00, // Overcast
	"type_29": 0.00, // Sky Unchanged
	"type_28": 0.00, // Sky Coverage Increasing
	"type_27": 0.00, // Sky Coverage Decreasing
	"type_26": 0.25, // Light Rain
	"type_2":  0.25, // Drizzle
	"type_4":  0.25, // Light Drizzle
	"type_39": 0.25, // Diamond Dust
	"type_20": 0.25, // Precipitation In Vicinity
	"type_6":  0.25, // Light Drizzle/Rain
	"type_35": 0.50, // Light Snow
	"type_24": 0.50, // Rain Showers
	"type_21": 0.50, // Rain
	"type_17": 0.50, // Ice
	"type_14": 0.50, // Light Freezing Rain
	"type_11": 0.50, // Light Freezing Drizzle/Freezing Rain
	"type_9":  0.50, // Freezing Drizzle/Freezing Rain
	"type_23": 0.50, // Light Rain And Snow
	"type_30": 0.50, // Smoke Or Haze
	"type_8":  0.50, // Fog
	"type_19": 0.75, // Mist
	"type_12": 0.75, // Freezing Fog
	"type_32": 0.75, // Snow And Rain Showers
	"type_33": 0.75, // Snow Showers
	"type_31": 0.75, // Snow
	"type_5":  0.75, // Heavy Drizzle/Rain
	"type_3":  0.75, // Heavy Drizzle
	"type_25": 0.75, // Heavy Rain
	"type_1":  0.75, // Blowing Or Drifting Snow
	"type_22": 1.00, // Heavy Rain And Snow
	"type_34": 1.00, // Heavy Snow
	"type_10": 1.00, // Heavy Freezing Drizzle/Freezing Rain
	"type_13": 1.00, // Heavy Freezing Rain
	"type_40": 1.00, // Hail
	"type_16": 1.00, // Hail Showers
	"type_7":  1.00, // Dust Storm
	"type_36": 1.00, // Squalls
	"type_38": 1.00, // Thunderstorm Without Precipitation
	"type_37": 1.00, // Thunderstorm
	"type_18": 1.00, // Lightning Without Thunder
	"type_15": 1.00, // Funnel Cloud/Tornado
}

var weatherDescriptions = map[string]string{
	"type_43": "Clear",
	"type_42": "Partially Cloudy",
	"type_41": "Overcast",
	"type_29": "Sky Unchanged",
	"type_28": "Sky Coverage Increasing",
	"type_27": "Sky Coverage Decreasing",
	"type_26": "Light Rain",
	"type_2":  "Drizzle",
	"type_4":  "Light Drizzle",
	"type_39": "Diamond Dust",
	"type_20": "Precipitation In Vicinity",
	"type_6":  "Light Drizzle/Rain",
	"type_35": "Light Snow",
	"type_24": "Rain Showers",
	"type_21": "Rain",
	"type_17": "Ice",
	"type_14": "Light Freezing Rain",
	"type_11": "Light Freezing Drizzle/Freezing Rain",
	"type_9":  "Freezing Drizzle/Freezing Rain",
	"type_23": "Light Rain And Snow",
	"type_30": "Smoke Or Haze",
	"type_8":  "Fog",
	"type_19": "Mist",
	"type_12": "Freezing Fog",
	"type_32": "Snow And Rain Showers",
	"type_33": "Snow Showers",
	"type_31": "Snow",
	"type_5":  "Heavy Drizzle/Rain",
	"type_3":  "Heavy Drizzle",
	"type_25": "Heavy Rain",
	"type_1":  "Blowing Or Drifting Snow",
	"type_22": "Heavy Rain And Snow",
	"type_34": "Heavy Snow",
	"type_10": "Heavy Freezing Drizzle/Freezing Rain",
	"type_13": "Heavy Freezing Rain",
	"type_40": "Hail",
	"type_16": "Hail Showers",
	"type_7":  "Dust Storm",
	"type_36": "Squalls",
	"type_38": "Thunderstorm Without Precipitation",
	"type_37": "Thunderstorm",
	"type_18": "Lightning Without Thunder",
	"type_15": "Funnel Cloud/Tornado",
}

// temperatureScore rates thermal stress for ground transport: extreme
// cold and extreme heat degrade road and rail conditions.
func temperatureScore(celsius float64) float64 {
	switch {
	case celsius <= -20 || celsius >= 45:
		return 1.00
	case celsius <= -10 || celsius >= 40:
		return 0.75
	case celsius <= 0 || celsius >= 35:
		return 0.50
	default:
		return 0.00
	}
}
