package schema

// AppraisalRich is the appraisal output shape with an estimated value range
// and comparable sales. This is the preset active in the default deployment.
var AppraisalRich = &Preset{
	Name:        "appraisal",
	Description: "A structured appraisal of a single item photographed by the user.",
	Fields: []Field{
		{Name: "descriptiveName", Kind: KindString, Description: "A short, descriptive name for the item."},
		{Name: "estimatedValueRange", Kind: KindCurrencyRange, Description: "The estimated resale value range for the item, as formatted currency strings."},
		{Name: "reasoning", Kind: KindString, Description: "A brief explanation for the estimated value."},
		{Name: "comparableSales", Kind: KindSaleArray, Description: "An array of 1-3 comparable recent sales of similar items."},
		{Name: "tags", Kind: KindStringArray, Description: "An array of 3-5 relevant keywords or tags."},
		{Name: "otherMetadata", Kind: KindPairArray, Description: "An array of key-value pairs for any other interesting metadata extracted from the image."},
	},
}

// AppraisalSimple is the earlier appraisal shape: a single valuation label
// instead of a value range, and free-keyed metadata. Consumers of the two
// presets key off different fields, so the shapes are kept distinct rather
// than merged.
var AppraisalSimple = &Preset{
	Name:        "appraisal-simple",
	Description: "A structured appraisal of a single item photographed by the user.",
	Fields: []Field{
		{Name: "descriptiveName", Kind: KindString, Description: "A short, descriptive name for the item."},
		{Name: "valuation", Kind: KindString, Description: "A concise summary of the item's potential value (e.g. 'Potentially valuable', 'Collector's item', 'Low value')."},
		{Name: "reasoning", Kind: KindString, Description: "A brief explanation for the valuation."},
		{Name: "tags", Kind: KindStringArray, Description: "An array of 3-5 relevant keywords or tags."},
		{Name: "otherMetadata", Kind: KindStringMap, Description: "Any other interesting metadata extracted from the image, as string key-value pairs."},
	},
}

// Bundles is the output shape for cross-inventory bundle suggestions.
var Bundles = &Preset{
	Name:        "bundles",
	Description: "An array of suggested product bundles.",
	Array:       true,
	Fields: []Field{
		{Name: "bundleName", Kind: KindString, Description: "A catchy, short name for the suggested bundle."},
		{Name: "description", Kind: KindString, Description: "A compelling description of why these items make a great bundle for customers."},
		{Name: "itemNames", Kind: KindStringArray, Description: "The 'descriptiveName' of the items that should be included in this bundle."},
	},
}
