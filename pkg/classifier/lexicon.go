package classifier

import "regexp"

// stopWords is the bilingual (English + romanised Hindi) stop-word set applied
// after tokenisation. Tokens of length <= 2 are dropped before this lookup, so
// short entries only matter for phrase preprocessing.
var stopWords = toSet(
	// English
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"has", "he", "in", "is", "it", "its", "of", "on", "that", "the",
	"to", "was", "will", "with", "this", "but", "they", "have",
	"had", "what", "said", "each", "which", "she", "do", "how", "their",
	"if", "up", "out", "many", "then", "them", "these", "so", "some",
	"her", "would", "make", "like", "into", "him", "time", "two", "more",
	"go", "no", "way", "could", "my", "than", "first", "been", "call",
	"who", "oil", "sit", "now", "find", "down", "day", "did", "get",
	"come", "made", "may", "part",
	// Hindi
	"ka", "ki", "ke", "ko", "se", "me", "par", "hai", "hain", "tha", "thi",
	"aur", "ya", "jo", "yah", "vah", "us", "ek", "teen", "char",
	"main", "tum", "aap", "hum", "woh", "kya", "kaise", "kahan", "kab", "kyun",
)

// valence is an AFINN-style lexicon: integer weights in [-5, 5] per word.
var valence = map[string]int{
	// English positive
	"amazing": 4, "awesome": 4, "excellent": 3, "fantastic": 4, "great": 3,
	"wonderful": 4, "brilliant": 4, "outstanding": 5, "superb": 5, "magnificent": 4,
	"marvelous": 3, "incredible": 4, "fabulous": 4, "terrific": 4, "perfect": 3,
	"beautiful": 3, "lovely": 3, "gorgeous": 3, "stunning": 4, "impressive": 3,
	"remarkable": 2, "extraordinary": 2, "phenomenal": 3, "spectacular": 3,
	"breathtaking": 5, "good": 3, "nice": 3, "love": 3, "loved": 3, "like": 2,
	"happy": 3, "glad": 3, "thanks": 2, "thank": 2, "enjoy": 2, "enjoyed": 2,
	"best": 3, "fun": 4, "cool": 1, "helpful": 2, "win": 4, "support": 2,
	"agree": 1, "safe": 1, "free": 1, "congratulations": 2,
	// English negative
	"terrible": -3, "awful": -3, "horrible": -3, "disgusting": -3, "pathetic": -2,
	"useless": -2, "worthless": -2, "disappointing": -2, "frustrating": -2,
	"annoying": -2, "irritating": -3, "boring": -3, "dull": -2, "bland": -2,
	"mediocre": -3, "poor": -2, "bad": -3, "worst": -3, "hate": -3, "hated": -3,
	"dislike": -2, "despise": -3, "loathe": -3, "detest": -3, "abhor": -3,
	"stupid": -2, "idiot": -3, "moron": -3, "dumb": -3, "loser": -3, "ugly": -3,
	"kill": -3, "killed": -3, "murder": -2, "die": -3, "dead": -3, "death": -2,
	"threat": -2, "threaten": -2, "attack": -1, "hurt": -2, "abuse": -3,
	"fake": -3, "fraud": -4, "scam": -2, "lie": -2, "liar": -3, "lies": -2,
	"angry": -3, "sad": -2, "fear": -2, "scared": -2, "racist": -3, "freak": -2,
	"fat": -2, "gross": -2, "hideous": -3, "trash": -3, "garbage": -1, "failure": -2,
	"damn": -4, "hell": -4, "crap": -3, "shit": -4, "fuck": -4, "bitch": -5,
	"bastard": -5, "asshole": -4, "wrong": -2, "problem": -2, "sucks": -3,
	// Hindi positive
	"zabardast": 4, "kamaal": 4, "shandar": 4, "behtreen": 4, "lajawab": 4,
	"khoobsurat": 3, "sundar": 3, "pyara": 3, "meetha": 2, "mazedaar": 3,
	"dilchasp": 2, "rochak": 2, "anokha": 2, "adbhut": 3, "vishesh": 2, "uttam": 3,
	"accha": 2, "badhiya": 3, "shukriya": 2, "dhanyavaad": 2,
	// Hindi negative
	"ganda": -3, "bura": -3, "bekaar": -2, "ghatiya": -3, "faltu": -2, "bakwas": -3,
	"bekar": -2, "kharab": -3, "galat": -2, "nafrat": -3, "bore": -2, "sust": -2,
	"thanda": -1, "fika": -2, "kamzor": -2, "badsurat": -3, "bewakoof": -2,
	"pagal": -2, "nikamma": -2, "nalayak": -2, "kutta": -3, "jhooth": -2,
	"dhokha": -3, "maar": -3, "marunga": -4, "mardunga": -4,
}

// valencePhrases are multi-word entries matched against the lower-cased text.
var valencePhrases = map[string]int{
	"bahut accha": 4,
	"can't stand": -3,
	"cant stand":  -3,
	"pasand nahi": -2,
}

// negators flip the valence of the word that follows them.
var negators = toSet("not", "never", "don't", "dont", "isn't", "isnt", "wasn't", "nahi", "nahin", "na")

// categoryPhrases holds one literal-phrase ruleset per category. Generic and
// identity words are left out; they matched ordinary posts.
var categoryPhrases = map[Category][]string{
	CategoryFakeNews: {
		"fake", "hoax", "conspiracy", "false", "misleading", "debunked", "unverified", "rumor",
		"misinformation", "propaganda", "lie", "lies", "fabricated", "doctored", "manipulated",
		"staged", "planted", "bogus", "phony", "counterfeit", "forged", "altered", "photoshopped",
		"deepfake", "clickbait", "sensational",
		"jhooth", "jhoothi", "jhootha", "galat", "fake news", "bakwas", "farzi", "nakli",
		"banawati", "saazish", "afwah", "gumrah", "bhramit", "galat jaankari",
	},
	CategoryHateSpeech: {
		"hate", "racist", "discrimination", "bigot", "prejudice", "supremacist", "nazi",
		"fascist", "xenophobic", "homophobic", "transphobic", "islamophobic", "antisemitic",
		"casteist", "communal", "sectarian", "ethnic cleansing", "genocide", "apartheid",
		"segregation", "lynch", "mob justice",
		"nafrat", "ghrina", "jaati", "bhed-bhaav", "untouchable", "neech", "kamina",
		"achhoot", "chhoti jaati", "jaat-paat", "sampradayik", "kafir", "gaddaar", "deshdrohi",
	},
	CategoryHarassment: {
		"harass", "bully", "threat", "intimidate", "stalk", "abuse", "cyberbully", "troll",
		"doxx", "blackmail", "extort", "menace", "terrorize", "persecute", "torment",
		"victimize", "oppress", "coerce", "violate", "molest", "sexual harassment",
		"pareshan", "dhamki", "dhamkana", "satana", "zulm", "attyachar", "dabav",
		"zorjabardasti", "majboor karna", "gunda gardi", "badmashi", "goonda", "badtameezi",
	},
	CategoryScam: {
		"scam", "fraud", "phishing", "ponzi", "pyramid scheme", "bitcoin", "cryptocurrency",
		"investment", "prize", "winner", "urgent", "limited time", "act now", "guaranteed",
		"lottery", "jackpot", "millionaire", "rich quick", "easy money", "work from home",
		"earn thousands", "no experience", "click here", "free gift", "congratulations",
		"exclusive offer", "limited offer", "hurry up", "dont miss", "last chance",
		"dhokha", "thagana", "inaam", "turant", "crorepati", "lakhpati", "ghar baithe",
		"aasaan paisa", "jhatpat", "antim mauka", "sirf aaj", "free mein", "muft",
	},
	CategoryMisinformation: {
		"vaccine", "covid", "coronavirus", "cure", "miracle cure", "natural remedy",
		"home remedy", "alternative medicine", "government cover up", "big pharma",
		"side effects", "toxic", "poison", "autism", "infertility", "microchip", "5g",
		"bill gates", "population control",
		"corona", "ilaj", "dawa", "bimari", "gharelu nuskha", "desi ilaj", "nuskha", "totka",
		"dawa company", "zeher",
	},
	CategoryCyberbullying: {
		"ugly", "stupid", "loser", "kill yourself", "worthless", "pathetic", "freak",
		"weirdo", "nobody likes you", "fat", "skinny", "bald", "smelly", "disgusting",
		"gross", "hideous", "monster", "beast", "cockroach", "trash", "garbage", "useless",
		"hopeless", "failure", "reject", "outcast", "loner",
		"bewakoof", "pagal", "badsurat", "marjayega", "mar ja", "khudkhushi", "suicide",
		"nikamma", "faltu", "koi pasand nahi karta", "mota", "takla", "badbu", "ghatiya",
		"janwar", "kutta", "suar", "kachra", "nalayak", "kamchor",
	},
	CategorySexualHarassment: {
		"sexy", "send pics", "nude", "naked", "strip", "undress", "grope", "fondle",
		"molest", "rape", "sleep with", "private parts", "boobs",
		"photo bhejo", "nanga", "kapde utaro", "chumma", "chhuna", "haath lagana",
		"chheda chhedi", "balatkar", "saath sona",
	},
	CategoryViolence: {
		"kill", "murder", "assassinate", "execute", "slaughter", "massacre", "genocide",
		"torture", "beat", "punch", "kick", "slap", "stab", "shoot", "gun", "knife", "weapon",
		"bomb", "blast", "attack", "assault", "destroy", "burn",
		"marna", "maar dena", "hatya", "qatl", "jaan lena", "khatam karna", "peetna",
		"maarna", "ghoonsa", "thappad", "chaku", "bandook", "hathiyar", "dhamaka", "hamla",
		"tabah karna", "jalana", "phoonkna", "barbaad karna",
		"marunga", "mardunga", "marduunga", "maar dunga", "maar denge", "khatam karunga",
		"khatam kar dunga", "peet dunga", "tod dunga", "jaan se maar dunga", "zinda nahi chodunga",
	},
}

// harmGroup is a named regexp over literal terms. Each match adds 0.2 to toxicity.
type harmGroup struct {
	Name    string
	Pattern *regexp.Regexp
}

func wordGroup(name string, terms string) harmGroup {
	return harmGroup{Name: name, Pattern: regexp.MustCompile(`(?i)\b(?:` + terms + `)\b`)}
}

var harmGroups = []harmGroup{
	wordGroup("violence", `kill|die|death|murder|suicide|assassinate|slaughter|massacre|torture|beat|hit|punch|kick|slap|stab|shoot|marjayega|mar ja|khudkhushi|khatam|maar|marna|hatya|qatl|jaan lena|peetna|ghoonsa|laat|thappad|marunga|mardunga|marduunga|maar dunga|khatam karunga|peet dunga|tod dunga`),
	wordGroup("hate", `hate|hatred|despise|loathe|racist|discrimination|bigot|nafrat|ghrina|bura|ganda|jaati|bhed-bhaav|neech|kamina|deshdrohi|gaddaar`),
	wordGroup("insult", `stupid|idiot|moron|dumb|retard|loser|freak|weirdo|bewakoof|pagal|gadha|ullu|nikamma|faltu|bekar|nalayak|kamchor|aalsi|kutta|suar|janwar`),
	wordGroup("appearance", `ugly|disgusting|gross|hideous|fat|skinny|bald|smelly|monster|beast|badsurat|ghatiya|bekaar|mota|patla|takla|badbu`),
	wordGroup("threat", `threat|threaten|intimidate|scare|blackmail|extort|dhamki|dhamkana|pareshan|zorjabardasti|majboor karna`),
	wordGroup("sexual", `rape|molest|grope|fondle|nude|naked|strip|undress|balatkar|chheda chhedi|nanga|kapde utaro|chhuna|haath lagana`),
	wordGroup("profanity", `fuck|shit|bitch|asshole|bastard|damn|hell|crap|madarchod|behenchod|chutiya`),
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
