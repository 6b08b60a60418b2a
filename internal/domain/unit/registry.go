package unit

// registry maps lowercase aliases to resolved units.
var registry = map[string]Unit{}

func register(symbol string, scale float64, dim Dimension, aliases ...string) {
	u := Unit{symbol: symbol, scale: scale, dim: dim}
	registry[symbol] = u
	for _, a := range aliases {
		registry[a] = u
	}
}

func init() {
	// Mass, base kg. "ton" is read as the metric tonne.
	register("kg", 1, Mass, "kgs", "kilo", "kilos", "kilogram", "kilograms", "kilogramme", "kilogrammes")
	register("g", 1e-3, Mass, "gram", "grams", "gramme", "grammes")
	register("mg", 1e-6, Mass, "milligram", "milligrams")
	register("t", 1e3, Mass, "tonne", "tonnes", "ton", "tons", "metric ton", "metric tons", "metric tonne")
	register("kt", 1e6, Mass, "kilotonne", "kilotonnes")
	register("Mt", 1e9, Mass, "megatonne", "megatonnes")
	register("lb", 0.45359237, Mass, "lbs", "pound", "pounds")
	register("oz", 0.028349523125, Mass, "ounce", "ounces")

	// Length, base km.
	register("km", 1, Length, "kms", "kilometer", "kilometers", "kilometre", "kilometres")
	register("m", 1e-3, Length, "meter", "meters", "metre", "metres")
	register("mi", 1.609344, Length, "mile", "miles")
	register("nmi", 1.852, Length, "nautical mile", "nautical miles")

	// Energy, base kWh.
	register("kWh", 1, Energy, "kwh", "kilowatt hour", "kilowatt hours", "kilowatt-hour", "kilowatt-hours")
	register("Wh", 1e-3, Energy, "wh", "watt hour", "watt hours")
	register("MWh", 1e3, Energy, "mwh", "megawatt hour", "megawatt hours")
	register("GWh", 1e6, Energy, "gwh", "gigawatt hour", "gigawatt hours")
	register("J", 1/3.6e6, Energy, "j", "joule", "joules")
	register("kJ", 1/3.6e3, Energy, "kj", "kilojoule", "kilojoules")
	register("MJ", 1/3.6, Energy, "mj", "megajoule", "megajoules")
	register("GJ", 1e3/3.6, Energy, "gj", "gigajoule", "gigajoules")
	register("TJ", 1e6/3.6, Energy, "tj", "terajoule", "terajoules")
	register("therm", 29.307107, Energy, "therms")
	register("MMBtu", 293.07107, Energy, "mmbtu")

	// Volume, base litre.
	register("L", 1, Volume, "l", "liter", "liters", "litre", "litres", "ltr")
	register("mL", 1e-3, Volume, "ml", "milliliter", "milliliters", "millilitre", "millilitres")
	register("m3", 1e3, Volume, "cubic meter", "cubic meters", "cubic metre", "cubic metres")
	register("gal", 3.785411784, Volume, "gallon", "gallons", "us gallon", "us gallons")

	// Count, base item.
	register("item", 1, Count, "items", "unit", "units", "piece", "pieces", "pc", "pcs", "each")

	// Freight and passenger transport work.
	register("t·km", 1e3, Mass.Add(Length), "tkm", "t.km", "tonne-km", "tonne km", "tonne-kilometer",
		"tonne-kilometers", "tonne-kilometre", "tonne-kilometres", "ton-km", "ton km")
	register("p·km", 1, Count.Add(Length), "pkm", "passenger-km", "passenger km",
		"passenger-kilometer", "passenger-kilometers", "passenger-kilometre", "passenger-kilometres")
}
