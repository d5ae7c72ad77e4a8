package rdf

// Well-known vocabulary IRIs.
const (
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	XSDString  IRI = XSDNamespace + "string"
	XSDBoolean IRI = XSDNamespace + "boolean"
	XSDInteger IRI = XSDNamespace + "integer"
	XSDDecimal IRI = XSDNamespace + "decimal"
	XSDFloat   IRI = XSDNamespace + "float"
	XSDDouble  IRI = XSDNamespace + "double"
	XSDLong    IRI = XSDNamespace + "long"
	XSDInt     IRI = XSDNamespace + "int"
	XSDShort   IRI = XSDNamespace + "short"
	XSDByte    IRI = XSDNamespace + "byte"

	XSDNonNegativeInteger IRI = XSDNamespace + "nonNegativeInteger"
	XSDPositiveInteger    IRI = XSDNamespace + "positiveInteger"
	XSDNegativeInteger    IRI = XSDNamespace + "negativeInteger"
	XSDNonPositiveInteger IRI = XSDNamespace + "nonPositiveInteger"
	XSDUnsignedLong       IRI = XSDNamespace + "unsignedLong"
	XSDUnsignedInt        IRI = XSDNamespace + "unsignedInt"
	XSDUnsignedShort      IRI = XSDNamespace + "unsignedShort"
	XSDUnsignedByte       IRI = XSDNamespace + "unsignedByte"

	RDFType       IRI = RDFNamespace + "type"
	RDFLangString IRI = RDFNamespace + "langString"
)

// IntegerDatatypes lists the xsd types derived from xsd:integer.
var IntegerDatatypes = map[IRI]bool{
	XSDInteger:            true,
	XSDLong:               true,
	XSDInt:                true,
	XSDShort:              true,
	XSDByte:               true,
	XSDNonNegativeInteger: true,
	XSDPositiveInteger:    true,
	XSDNegativeInteger:    true,
	XSDNonPositiveInteger: true,
	XSDUnsignedLong:       true,
	XSDUnsignedInt:        true,
	XSDUnsignedShort:      true,
	XSDUnsignedByte:       true,
}

// IsNumericDatatype reports whether dt is one of the SPARQL numeric types.
func IsNumericDatatype(dt IRI) bool {
	return IntegerDatatypes[dt] || dt == XSDDecimal || dt == XSDFloat || dt == XSDDouble
}
