package usecase

// DefaultKeywordLanguages lists the stop-word languages enabled by default
var DefaultKeywordLanguages = []string{"ca", "es", "en"}

// stopwordLists holds whitespace-separated stop-words per language.
// Entries also match their unaccented spelling, except those prefixed
// with "=" whose unaccented form is a different word (més/mes, són/son).
var stopwordLists = map[string]string{
	"ca": `
a al als amb ara això aixo aquell aquella aquelles aquells aquest aquesta aquestes aquests
cap com con contra d de del dels des desde després dins doncs durant el ell ella elles ells
els em en entre era eren es és esta està estan estava et fa fan fer fins ha han has hi
ho i jo l la les li llavors lo los m me meu meva =més molt na ni no nos nosaltres
o on per perquè però poc pot potser qual quan quant quanta quants quantes que què qui
quin quina quins quines s sa se seu seva
si sense ser sobre som =són sota també tan tant te té tenen tenim tinc tot tota totes
tots tu un una unes uns us va van vaig vam vosaltres vostre ja sí dir diu sap saps
algú alguna algun alguns algunes cosa res aquí allà mai sempre bé doncs hem heu he
`,
	"es": `
a al algo algunas algunos ante antes como con contra cual cuando cuándo de del desde
donde dónde durante e el él ella ellas ellos en entre era eran es esa esas ese eso esos
esta está están estas este esto estos fue fueron ha han hay hasta la las le les lo los
me mi mis mucho muy nada ni no nos nosotros o os otra otro para pero poco por porque
qué que quien quién se sea ser si sí sin sobre son su sus también tan te tengo tiene
tienen todo todos tu tú un una unas uno unos usted vosotros y ya yo cómo cuál cuáles dónde
cuánto cuánta cuántos cuántas
hacer hace dice sabe sabes alguien aquí allí nunca siempre bien he has hemos habéis
`,
	"en": `
a about above after again against all am an and any are as at be because been before
being below between both but by can could did do does doing down during each few for
from further had has have having he her here hers herself him himself his how i if in
into is it its itself just me more most my myself no nor not now of off on once only
or other our ours ourselves out over own same she should so some such than that the
their theirs them themselves then there these they this those through to too under
until up very was we were what when where which while who whom why will with would
you your yours yourself yourselves anyone someone something anything tell know said
says does did let lets please hey hi ok okay yes
`,
}
