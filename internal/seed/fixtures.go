package seed

import "github.com/tbourn/nabostylisten-backend/internal/domain"

var firstNames = []string{
	"Ingrid", "Nora", "Emma", "Sofie", "Maja", "Ida", "Thea", "Sara", "Julie", "Hanna",
	"Jonas", "Emil", "Lukas", "Henrik", "Mathias", "Sander", "Elias", "Magnus", "Oliver", "Aksel",
	"Kari", "Silje", "Marte", "Tuva", "Vilde", "Live", "Frida", "Astrid", "Sigrid", "Eline",
}

var lastNames = []string{
	"Hansen", "Johansen", "Olsen", "Larsen", "Andersen", "Pedersen", "Nilsen", "Kristiansen",
	"Jensen", "Karlsen", "Johnsen", "Pettersen", "Eriksen", "Berg", "Haugen", "Hagen",
	"Johannessen", "Andreassen", "Jacobsen", "Dahl", "Jørgensen", "Halvorsen", "Lund", "Solberg",
}

// area is a neighbourhood the fixtures place people in.
type area struct {
	street     string
	postalCode string
	city       string
	lat, lng   float64
}

var osloAreas = []area{
	{"Thorvald Meyers gate", "0555", "Oslo", 59.9225, 10.7590},
	{"Bogstadveien", "0355", "Oslo", 59.9275, 10.7190},
	{"Grønlandsleiret", "0190", "Oslo", 59.9105, 10.7640},
	{"Bygdøy allé", "0265", "Oslo", 59.9160, 10.7100},
	{"Trondheimsveien", "0560", "Oslo", 59.9290, 10.7700},
	{"Sandakerveien", "0473", "Oslo", 59.9400, 10.7580},
	{"Bekkelagsveien", "1181", "Oslo", 59.8830, 10.7880},
	{"Kirkeveien", "0368", "Oslo", 59.9330, 10.7240},
	{"Nydalsveien", "0484", "Oslo", 59.9500, 10.7650},
	{"Strømsveien", "0668", "Oslo", 59.9130, 10.8150},
	{"Sandvikaveien", "1337", "Sandvika", 59.8890, 10.5240},
	{"Storgata", "2000", "Lillestrøm", 59.9560, 11.0490},
}

// offering is a service template.
type offering struct {
	category    string
	title       string
	description string
	priceOre    int64
	minutes     int
	atCustomer  bool
}

var offerings = []offering{
	{domain.CategoryHair, "Dameklipp", "Vask, klipp og føn.", 69000, 60, true},
	{domain.CategoryHair, "Herreklipp", "Klipp med maskin og saks.", 45000, 45, true},
	{domain.CategoryHair, "Balayage", "Frihåndslys med toning og kur.", 189000, 180, false},
	{domain.CategoryHair, "Helfarge", "Farge fra rot til tupp.", 129000, 120, false},
	{domain.CategoryNails, "Gellakk hender", "Fjerning, forming og ny gellakk.", 59000, 60, true},
	{domain.CategoryNails, "Negleforlengelse", "Forlengelse med gelé.", 89000, 90, false},
	{domain.CategoryMakeup, "Festsminke", "Sminke til fest og selskap.", 79000, 60, true},
	{domain.CategoryMakeup, "Sminkekurs", "Lær å sminke deg selv.", 99000, 90, true},
	{domain.CategoryLashes, "Vippeextensions", "Klassisk sett.", 109000, 120, false},
	{domain.CategoryLashes, "Vippeløft", "Løft og farge.", 69000, 60, true},
	{domain.CategoryBrows, "Brynsforming og farge", "Forming med voks og farge.", 39000, 30, true},
	{domain.CategoryWedding, "Brudestyling", "Hår og sminke på bryllupsdagen.", 349000, 180, true},
	{domain.CategorySkincare, "Ansiktsbehandling", "Rens, peeling og maske.", 99000, 75, false},
}

var reviewComments = []string{
	"Veldig fornøyd, kommer gjerne tilbake!",
	"Hyggelig og profesjonell. Anbefales.",
	"Akkurat som jeg ønsket meg.",
	"Litt forsinket, men resultatet var flott.",
	"Supert å få besøk hjemme, sparte mye tid.",
	"Grundig og nøye arbeid.",
	"Fikk gode råd om pleie etterpå.",
	"",
}

var customerLines = []string{
	"Hei! Gleder meg til timen.",
	"Er det parkering i nærheten?",
	"Kan vi starte ti minutter senere?",
	"Tusen takk for sist!",
	"Jeg har litt sensitiv hud, er det greit?",
}

var stylistLines = []string{
	"Hei! Det passer fint.",
	"Det er gateparkering rett utenfor.",
	"Ingen problem, vi sees da.",
	"Takk selv, håper du er fornøyd!",
	"Jeg tar med produkter for sensitiv hud.",
}

var cancelReasons = []string{
	"Blitt syk",
	"Må jobbe likevel",
	"Fant et annet tidspunkt",
	"Reiser bort",
}

var refundReasons = []string{
	"Kunden var misfornøyd med fargen",
	"Behandlingen ble kortere enn avtalt",
	"Dobbeltbelastning",
}
