package risk

// Default indicator patterns, compiled case-insensitively. Cyrillic stems use
// \p{L}* rather than \w* because Go's \w is ASCII-only.

var defaultFinancingPatterns = []string{
	`финансирован\p{L}* террор\p{L}*`,
	`сбор средств (на|для) \p{L}+`,
	`пожертвовани\p{L}* (в пользу|для) запрещ\p{L}+`,
	`незаконн\p{L}* перевод\p{L}* средств`,
	`обналичиван\p{L}* (для|в пользу)`,
	`хавал\p{L}+`,
	`terror\p{L}* financ\p{L}*`,
	`fundraising for (a )?(banned|designated|proscribed)`,
	`hawala transfer`,
}

var defaultMaterielPatterns = []string{
	`взрывчат\p{L}* веществ\p{L}*`,
	`компонент\p{L}* (взрывн\p{L}*|оружи\p{L}*)`,
	`боеприпас\p{L}*`,
	`детонатор\p{L}*`,
	`прекурсор\p{L}* взрывчат\p{L}*`,
	`explosive (device|material|precursor)`,
	`detonator\p{L}*`,
	`weapons components`,
}

var defaultOrganizationalPatterns = []string{
	`вербовк\p{L}* (в|для) \p{L}+`,
	`ячейк\p{L}* (организации|группировки)`,
	`запрещ[её]нн\p{L}* организаци\p{L}*`,
	`признанн\p{L}* террористическ\p{L}*`,
	`recruitment (cell|network)`,
	`designated (terrorist )?organi[sz]ation`,
	`proscribed group`,
}

var defaultActivityPatterns = []string{
	`подготовк\p{L}* (теракт\p{L}*|атак\p{L}*)`,
	`планировани\p{L}* (атак\p{L}*|нападени\p{L}*)`,
	`слежк\p{L}* за объект\p{L}*`,
	`attack planning`,
	`operational surveillance`,
	`target reconnaissance`,
}

// Exclusion patterns short-circuit the detector to zero confidence. They
// recognize legitimate-content framing around otherwise-matching text.
var defaultExclusionPatterns = []string{
	`научн\p{L}* (статья|статье|исследовани\p{L}*|публикаци\p{L}*)`,
	`академическ\p{L}*`,
	`диссертаци\p{L}*`,
	`журналистск\p{L}* (расследовани\p{L}*|материал\p{L}*)`,
	`(новостн\p{L}*|пресс\p{L}*) (сообщени\p{L}*|релиз\p{L}*)`,
	`историческ\p{L}* (обзор\p{L}*|справк\p{L}*|контекст\p{L}*)`,
	`учебн\p{L}* (материал\p{L}*|курс\p{L}*|пособи\p{L}*)`,
	`санкционированн\p{L}* операци\p{L}*`,
	`academic (paper|research|study|article)`,
	`peer.reviewed`,
	`journalis\p{L}* (report|investigation|coverage)`,
	`news (report|article|coverage)`,
	`historical (account|overview|analysis|context)`,
	`officially (authori[sz]ed|sanctioned) operation`,
	`law enforcement (operation|training)`,
	`training (material|course|exercise)`,
}
